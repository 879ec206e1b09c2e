package tui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Interactive reports whether w is attached to a real terminal. The
// banner and markdown styling are suppressed when output is piped.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
