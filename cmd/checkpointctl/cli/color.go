package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// colorEnabled reports whether stdout is a terminal, gating color
// output the same way a pipe or redirect would disable it.
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

var (
	hashColor   = color.New(color.FgYellow)
	addColor    = color.New(color.FgGreen)
	modColor    = color.New(color.FgYellow)
	delColor    = color.New(color.FgRed)
	renameColor = color.New(color.FgBlue)
	dimColor    = color.New(color.Faint)
)

func init() {
	enabled := colorEnabled()
	color.NoColor = !enabled
}

func zerologLevel() zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}
