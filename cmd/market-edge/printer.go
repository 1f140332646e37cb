// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console colors for human-facing output. Reports written to stdout in
// yaml or json are never colored.
var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan, color.Bold)
)

// success prints a confirmation line to stderr.
func success(format string, a ...any) {
	green.Fprintf(os.Stderr, "✓ "+format+"\n", a...)
}

// warning prints a non-fatal problem to stderr.
func warning(format string, a ...any) {
	yellow.Fprintf(os.Stderr, "! "+format+"\n", a...)
}

// heading prints a table header line to w.
func heading(w io.Writer, format string, a ...any) {
	cyan.Fprintf(w, format, a...)
	fmt.Fprintln(w)
}
