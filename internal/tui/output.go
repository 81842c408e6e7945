// Package tui renders impact results in the terminal: an interactive
// bubbletea table when stdout is a terminal and plain or styled text
// otherwise.
package tui

import (
	"os"

	"golang.org/x/term"
)

// OutputMode selects how results are rendered.
type OutputMode int

// Output modes.
const (
	OutputModePlain OutputMode = iota
	OutputModeStyled
	OutputModeInteractive
)

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// DetectOutputMode picks a mode for stdout. plain forces plain text;
// noColor (or NO_COLOR) downgrades to plain; CI never gets the interactive
// view; forceInteractive wins when stdout is a terminal.
func DetectOutputMode(forceInteractive, noColor, plain bool) OutputMode {
	if plain {
		return OutputModePlain
	}
	tty := IsTTY(os.Stdout)
	if noColor || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return OutputModePlain
	}
	if !tty {
		return OutputModePlain
	}
	if forceInteractive {
		return OutputModeInteractive
	}
	if os.Getenv("CI") != "" {
		return OutputModeStyled
	}
	return OutputModeInteractive
}
