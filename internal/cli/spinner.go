package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// WithSpinner runs fn while showing a spinner with suffix on out. The
// spinner only renders on a terminal; quiet disables it.
func WithSpinner(out io.Writer, quiet bool, suffix string, fn func() error) error {
	if quiet {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()

	return fn()
}
