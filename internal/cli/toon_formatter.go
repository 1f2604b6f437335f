package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	toon "github.com/toon-format/toon-go"
)

// ToonFormatter implements the Formatter interface using TOON format.
// TOON (Token-Oriented Object Notation) is optimized for agent consumption.
type ToonFormatter struct{}

// FormatSummary renders the run as a single tabular row:
// summary{input,output,original,duplicates,filtered,cleaned,cached}: followed
// by one indented data row.
func (f *ToonFormatter) FormatSummary(w io.Writer, s Summary) error {
	header := "summary{input,output,original,duplicates,filtered,cleaned,cached}:"
	values := strings.Join([]string{
		toonEscapeValue(s.Input),
		toonEscapeValue(s.Output),
		strconv.Itoa(s.Original),
		strconv.Itoa(s.Duplicates),
		strconv.Itoa(s.Filtered),
		strconv.Itoa(s.Cleaned),
		strconv.FormatBool(s.Cached),
	}, ",")

	_, err := fmt.Fprint(w, header+"\n  "+values+"\n")
	return err
}

// toonEscapeValue uses the toon-go library to properly escape a string value
// for use in TOON array context (comma-delimited).
func toonEscapeValue(s string) string {
	// Marshal a single-row tabular array to get array-context escaping.
	doc := toon.NewObject(
		toon.Field{Key: "a", Value: []toon.Object{
			toon.NewObject(toon.Field{Key: "v", Value: s}),
		}},
	)
	result, err := toon.MarshalString(doc)
	if err != nil {
		return s
	}
	// Result is "a[1]{v}:\n  <value>" - extract the value from the second line
	lines := strings.SplitN(result, "\n", 2)
	if len(lines) == 2 {
		return strings.TrimSpace(lines[1])
	}
	return s
}
