package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Format represents the output format type.
type Format string

// Format constants for output selection.
const (
	FormatToon   Format = "toon"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// Summary holds the figures reported after a run.
type Summary struct {
	Input      string
	Output     string
	Original   int
	Duplicates int
	Filtered   int
	Cleaned    int
	Cached     bool
}

// Formatter defines the interface for rendering run output in different formats.
type Formatter interface {
	// FormatSummary renders the result of a completed run.
	FormatSummary(w io.Writer, s Summary) error
}

// DetectTTY checks if the given writer is a terminal (TTY).
// Returns false if writer is not an *os.File, if Stat() fails,
// or if the file is not a character device.
func DetectTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// ResolveFormat determines the output format from flags, the configured
// default and TTY status. More than one format flag is an error. With no flag
// set the configured format wins; otherwise TTY -> Pretty, non-TTY -> Toon.
func ResolveFormat(toonFlag, prettyFlag, jsonFlag bool, configured string, isTTY bool) (Format, error) {
	count := 0
	for _, set := range []bool{toonFlag, prettyFlag, jsonFlag} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", errors.New("only one format flag allowed: --toon, --pretty, or --json")
	}

	switch {
	case toonFlag:
		return FormatToon, nil
	case prettyFlag:
		return FormatPretty, nil
	case jsonFlag:
		return FormatJSON, nil
	}

	switch Format(configured) {
	case FormatToon, FormatPretty, FormatJSON:
		return Format(configured), nil
	case "":
	default:
		return "", fmt.Errorf("invalid format %q", configured)
	}

	if isTTY {
		return FormatPretty, nil
	}
	return FormatToon, nil
}

// NewFormatter returns the Formatter for f. This is the single point where a
// format is resolved to a concrete formatter.
func NewFormatter(f Format) Formatter {
	switch f {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatPretty:
		return &PrettyFormatter{}
	default:
		return &ToonFormatter{}
	}
}
