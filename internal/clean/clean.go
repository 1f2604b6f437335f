// Package clean implements the deduplicating filter: exact duplicate rows are
// dropped and, when both a column and a pattern are given, rows whose column
// value does not contain a match are dropped too.
package clean

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/leeovery/csvclean/internal/table"
)

// ErrInvalidPattern is returned by NewFilter when the pattern does not compile.
var ErrInvalidPattern = errors.New("invalid regex")

// Filter is the optional regex filter applied to one column.
// A nil *Filter, or one missing either the column or the pattern, keeps every
// non-duplicate row.
type Filter struct {
	column  string
	raw     string
	pattern *regexp.Regexp
}

// NewFilter compiles pattern once. An empty pattern is treated as absent. A
// non-empty pattern is compiled even when column is empty, so a bad expression
// is always reported.
func NewFilter(column, pattern string) (*Filter, error) {
	f := &Filter{column: column, raw: pattern}
	if pattern == "" {
		return f, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	f.pattern = re
	return f, nil
}

// Column returns the target column name.
func (f *Filter) Column() string {
	if f == nil {
		return ""
	}
	return f.column
}

// Pattern returns the raw pattern string.
func (f *Filter) Pattern() string {
	if f == nil {
		return ""
	}
	return f.raw
}

// Active reports whether rows are checked against the pattern.
func (f *Filter) Active() bool {
	return f != nil && f.column != "" && f.pattern != nil
}

// Match reports whether r's target column contains a match.
// Inactive filters match everything.
func (f *Filter) Match(r table.Record) bool {
	if !f.Active() {
		return true
	}
	return f.pattern.MatchString(r.Value(f.column))
}

// Result is the outcome of one cleaning pass.
type Result struct {
	Records    []table.Record
	Original   int
	Duplicates int
	Filtered   int
}

// Cleaned returns the number of kept records.
func (r Result) Cleaned() int {
	return len(r.Records)
}

type options struct {
	verbose func(string)
}

// Option configures a cleaning pass.
type Option func(*options)

// WithVerbose reports the original and cleaned row counts through log once the
// pass completes.
func WithVerbose(log func(string)) Option {
	return func(o *options) {
		o.verbose = log
	}
}

// Clean runs one deduplicate-and-filter pass over t. Output order is input
// order. A filtered-out row's fingerprint stays in the seen-set, so later
// copies of it count as duplicates rather than being filtered again.
func Clean(t *table.Table, f *Filter, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var headers []string
	var records []table.Record
	if t != nil {
		headers = t.Headers
		records = t.Records
	}

	res := Result{
		Records:  make([]table.Record, 0, len(records)),
		Original: len(records),
	}
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		key := table.Fingerprint(headers, r)
		if _, dup := seen[key]; dup {
			res.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		if !f.Match(r) {
			res.Filtered++
			continue
		}

		res.Records = append(res.Records, r)
	}

	LogCounts(o.verbose, res.Original, res.Cleaned())

	return res
}

// LogCounts reports the original and cleaned row counts through log.
// A nil log is a no-op.
func LogCounts(log func(string), original, cleaned int) {
	if log == nil {
		return
	}
	log(fmt.Sprintf("original rows: %d", original))
	log(fmt.Sprintf("cleaned rows: %d", cleaned))
}
