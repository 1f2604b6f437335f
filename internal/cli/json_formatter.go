package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter implements the Formatter interface using JSON output.
// All keys use snake_case. Output is 2-space indented via json.MarshalIndent.
type JSONFormatter struct{}

// jsonSummary is the JSON representation of a run summary.
type jsonSummary struct {
	Input      string `json:"input"`
	Output     string `json:"output"`
	Original   int    `json:"original"`
	Duplicates int    `json:"duplicates"`
	Filtered   int    `json:"filtered"`
	Cleaned    int    `json:"cleaned"`
	Cached     bool   `json:"cached"`
}

// FormatSummary renders the run summary as a JSON object.
func (f *JSONFormatter) FormatSummary(w io.Writer, s Summary) error {
	return writeJSON(w, jsonSummary{
		Input:      s.Input,
		Output:     s.Output,
		Original:   s.Original,
		Duplicates: s.Duplicates,
		Filtered:   s.Filtered,
		Cleaned:    s.Cleaned,
		Cached:     s.Cached,
	})
}

// writeJSON marshals v with 2-space indentation and writes it followed by a newline.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
