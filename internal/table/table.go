// Package table defines the in-memory model for a parsed CSV file: an ordered
// header row and the records keyed by column name.
package table

import (
	"sort"
	"strconv"
	"strings"
)

// Record is a single data row keyed by column name.
// A column missing from the map is absent (the source row was short), which is
// distinct from a column holding the empty string.
type Record map[string]string

// Value returns the cell for column, or "" when the column is absent.
func (r Record) Value(column string) string {
	return r[column]
}

// Table is a parsed CSV file. Headers defines the output column order.
type Table struct {
	Headers []string
	Records []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Fingerprint builds the composite key used to detect exact duplicate rows.
//
// Columns are encoded in header order, followed by any keys outside the header
// set in sorted order. Each column contributes either "-" (absent) or
// "+<len>:<value>", so values containing separators cannot collide.
func Fingerprint(headers []string, r Record) string {
	var b strings.Builder
	seen := make(map[string]struct{}, len(headers))
	present := 0

	for _, h := range headers {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if _, ok := r[h]; ok {
			present++
		}
		writeCell(&b, r, h)
	}

	if len(r) > present {
		var extra []string
		for k := range r {
			if _, ok := seen[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte('=')
			b.WriteString(k)
			writeCell(&b, r, k)
		}
	}

	return b.String()
}

func writeCell(b *strings.Builder, r Record, column string) {
	v, ok := r[column]
	if !ok {
		b.WriteByte('-')
		return
	}
	b.WriteByte('+')
	b.WriteString(strconv.Itoa(len(v)))
	b.WriteByte(':')
	b.WriteString(v)
}
