// Package output builds termenv outputs with consistent color profile handling.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ColorProfile returns the profile for styled output on w.
// NO_COLOR forces Ascii. A writer that is not a terminal gets ANSI so that
// forced color mode still renders in CI logs.
func ColorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if f, ok := w.(*os.File); ok {
		if p := termenv.NewOutput(f).EnvColorProfile(); p != termenv.Ascii {
			return p
		}
	}
	return termenv.ANSI
}

// New creates a termenv.Output for w. When color is false the output is plain text.
func New(w io.Writer, color bool) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}

	profile := termenv.Ascii
	if color {
		profile = ColorProfile(w)
	}

	return termenv.NewOutput(w,
		termenv.WithProfile(profile),
		termenv.WithTTY(color),
	)
}
