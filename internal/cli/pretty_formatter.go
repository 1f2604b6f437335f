package cli

import (
	"fmt"
	"io"
)

// PrettyFormatter implements the Formatter interface for human-readable
// terminal output: aligned labels, no borders or colors.
type PrettyFormatter struct{}

// FormatSummary renders row counts with aligned values followed by the
// output path.
func (f *PrettyFormatter) FormatSummary(w io.Writer, s Summary) error {
	lines := []struct {
		label string
		value int
	}{
		{"Original rows:", s.Original},
		{"Cleaned rows:", s.Cleaned},
		{"Duplicates:", s.Duplicates},
		{"Filtered:", s.Filtered},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-15s%d\n", l.label, l.value); err != nil {
			return err
		}
	}

	if s.Cached {
		if _, err := fmt.Fprintln(w, "Result reused from cache."); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Cleaned CSV saved to: %s\n", s.Output)
	return err
}
