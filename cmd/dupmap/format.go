package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var countPrinter = message.NewPrinter(language.English)

// formatCount renders n with thousands separators.
func formatCount[T ~int | ~int64](n T) string {
	return countPrinter.Sprintf("%d", n)
}

// formatBytes renders a size in bytes with thousands separators.
func formatBytes(n int64) string {
	return countPrinter.Sprintf("%d bytes", n)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// headingColor returns the cluster heading style for writer, plain when the
// writer is not a terminal.
func headingColor(writer io.Writer) *color.Color {
	c := color.New(color.FgCyan, color.Bold)
	if shouldColorize(writer) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
