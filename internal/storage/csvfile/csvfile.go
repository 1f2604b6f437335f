// Package csvfile reads and writes CSV files with a header row.
// Writes use the temp file + fsync + rename pattern so an output file is
// either fully replaced or left untouched.
package csvfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leeovery/csvclean/internal/table"
)

const utf8BOM = "\ufeff"

// RowError reports a data row that cannot be mapped onto the header.
type RowError struct {
	Line   int
	Fields int
	Header int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: row has %d fields, header has %d", e.Line, e.Fields, e.Header)
}

// Parse parses raw CSV bytes. The first non-blank row is the header; a leading
// UTF-8 byte order mark is stripped from it. Rows shorter than the header leave
// the trailing columns absent. Rows longer than the header are a *RowError.
// Empty input returns an empty table with no headers.
func Parse(data []byte) (*table.Table, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &table.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &table.Table{Headers: header}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(row) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, &RowError{Line: line, Fields: len(row), Header: len(header)}
		}

		rec := make(table.Record, len(row))
		for i, v := range row {
			rec[header[i]] = v
		}
		t.Records = append(t.Records, rec)
	}

	return t, nil
}

type writeOptions struct {
	crlf bool
}

// WriteOption configures Write.
type WriteOption func(*writeOptions)

// WithCRLF terminates lines with \r\n instead of \n.
func WithCRLF(enabled bool) WriteOption {
	return func(o *writeOptions) {
		o.crlf = enabled
	}
}

// Write writes t to path atomically: header row first, then each record's
// cells in header order. Absent cells are written as empty strings. A table
// with no headers produces an empty file.
func Write(path string, t *table.Table, opts ...WriteOption) error {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmpFile, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on any error
	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	buf := bufio.NewWriter(tmpFile)
	if err := encode(buf, t, o); err != nil {
		return err
	}

	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func encode(w io.Writer, t *table.Table, o writeOptions) error {
	if t == nil || len(t.Headers) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = o.crlf

	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(t.Headers))
	for i, rec := range t.Records {
		for j, h := range t.Headers {
			row[j] = rec.Value(h)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv writer: %w", err)
	}
	return nil
}
