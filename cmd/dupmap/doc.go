// Package main hosts the dupmap CLI entrypoint and command graph.
//
// The Cobra-based command tree maps directory trees into catalogue databases,
// locates duplicates of local files across catalogues, finds duplicate
// clusters inside catalogues, and renders or prunes the resulting reports.
// Configuration resolution and structured logging setup live in
// commandContext so subcommands only wire internal packages together.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
