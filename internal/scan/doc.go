// Package scan walks a directory tree into catalogue records.
//
// Walker yields regular files in lexical order, skipping symlinks, known OS
// noise files, configured directories, and subtrees named by a suppression
// file. Mapper drives a walk into a catalogue with buffered inserts, skipping
// files the catalogue already holds.
package scan
