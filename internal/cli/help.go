package cli

import (
	"fmt"
	"io"

	"github.com/leeovery/csvclean/internal/config"
)

// flagInfo describes a single flag for help output.
type flagInfo struct {
	Short string // "-i", "" when the flag has no short form
	Name  string // "--input"
	Arg   string // "<path>", "" for bool
	Desc  string
}

// flags is the ordered registry of csvclean flags.
var flags = []flagInfo{
	{"-i", "--input", "<path>", "Input CSV file (required)"},
	{"-o", "--output", "<path>", "Output cleaned CSV file (required)"},
	{"-c", "--column", "<name>", "Column the regex filter is applied to"},
	{"-r", "--regex", "<pattern>", "Keep only rows whose column value matches"},
	{"-v", "--verbose", "", "Trace to stderr and print a run summary"},
	{"", "--config", "<path>", "Config file (default: nearest " + config.FileName + ")"},
	{"", "--cache", "<dir>", "Reuse results from a cache in this directory"},
	{"", "--lock-timeout", "<duration>", "How long to wait for the cache lock (default: 5s)"},
	{"", "--crlf", "", "Write \\r\\n line endings"},
	{"", "--toon", "", "Force TOON summary format"},
	{"", "--pretty", "", "Force human-readable summary format"},
	{"", "--json", "", "Force JSON summary format"},
	{"-h", "--help", "", "Show this help"},
}

// printUsage writes the usage text to w.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: csvclean -i <input> -o <output> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Removes exact duplicate rows from a CSV file and optionally keeps only")
	fmt.Fprintln(w, "rows whose --column value matches --regex. Both are needed to filter.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "With --verbose the run summary is pretty on a terminal and TOON when")
	fmt.Fprintln(w, "stdout is piped. Use --pretty, --toon or --json to choose explicitly.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")

	width := 0
	labels := make([]string, len(flags))
	for i, f := range flags {
		label := "    " + f.Name
		if f.Short != "" {
			label = f.Short + ", " + f.Name
		}
		if f.Arg != "" {
			label += " " + f.Arg
		}
		labels[i] = label
		if len(label) > width {
			width = len(label)
		}
	}
	for i, f := range flags {
		fmt.Fprintf(w, "  %-*s  %s\n", width, labels[i], f.Desc)
	}
}
