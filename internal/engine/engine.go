// Package engine runs one clean over a CSV file: it checks the input, reads
// it, deduplicates and filters the rows, and atomically writes the output.
// With a cache directory configured, runs sharing that directory are
// serialized by a file lock and results are reused from the SQLite cache.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/leeovery/csvclean/internal/cache"
	"github.com/leeovery/csvclean/internal/clean"
	"github.com/leeovery/csvclean/internal/storage/csvfile"
	"github.com/leeovery/csvclean/internal/table"
)

const (
	defaultLockTimeout = 5 * time.Second
	defaultCacheLimit  = 50
	lockRetryDelay     = 50 * time.Millisecond
)

var (
	// ErrInputNotFound is matched by the error Run returns for a missing input.
	ErrInputNotFound = errors.New("input file does not exist")
	// ErrLockTimeout is returned when the cache directory lock is held elsewhere.
	ErrLockTimeout = errors.New("lock timeout")
)

// MissingInputError reports an input path that does not exist.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("File '%s' does not exist.", e.Path)
}

// Is matches ErrInputNotFound.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrInputNotFound
}

// Job describes one run.
type Job struct {
	Input  string
	Output string
	Filter *clean.Filter
}

// Report summarizes a completed run.
type Report struct {
	Input      string
	Output     string
	Original   int
	Duplicates int
	Filtered   int
	Cleaned    int
	Cached     bool
}

// Cleaner executes Jobs.
type Cleaner struct {
	cacheDir    string
	cacheLimit  int
	lockTimeout time.Duration
	crlf        bool
	verbose     *VerboseLogger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithVerbose sets the logger for lock, cache and write tracing.
func WithVerbose(vl *VerboseLogger) Option {
	return func(c *Cleaner) {
		c.verbose = vl
	}
}

// WithCacheDir enables the result cache and run lock inside dir.
// An empty dir disables both.
func WithCacheDir(dir string) Option {
	return func(c *Cleaner) {
		c.cacheDir = dir
	}
}

// WithCacheLimit sets how many results the cache keeps. The default is 50.
func WithCacheLimit(n int) Option {
	return func(c *Cleaner) {
		if n > 0 {
			c.cacheLimit = n
		}
	}
}

// WithLockTimeout sets a custom lock timeout duration. The default is 5 seconds.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Cleaner) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithCRLF writes the output with \r\n line endings.
func WithCRLF(enabled bool) Option {
	return func(c *Cleaner) {
		c.crlf = enabled
	}
}

// New creates a Cleaner.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{
		cacheLimit:  defaultCacheLimit,
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes job. A missing input is reported before anything else happens,
// and the output file is only replaced once the cleaned table is complete.
func (c *Cleaner) Run(job Job) (*Report, error) {
	if _, err := os.Stat(job.Input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingInputError{Path: job.Input}
		}
		return nil, fmt.Errorf("checking input: %w", err)
	}

	if c.cacheDir == "" {
		return c.run(job, nil)
	}

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	unlock, err := c.acquireExclusive()
	if err != nil {
		return nil, err
	}
	defer unlock()

	store, err := cache.Open(filepath.Join(c.cacheDir, "cache.db"))
	if err != nil {
		log.Printf("warning: result cache unavailable, continuing without it: %v", err)
		return c.run(job, nil)
	}
	defer store.Close()

	return c.run(job, store)
}

func (c *Cleaner) run(job Job, store *cache.Cache) (*Report, error) {
	raw, err := os.ReadFile(job.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", job.Input, err)
	}

	key, entry, cached := c.lookup(store, raw, job.Filter)

	if !cached {
		t, err := csvfile.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", job.Input, err)
		}
		c.verbose.Logf("read %d rows from %s", t.Len(), job.Input)

		res := clean.Clean(t, job.Filter, clean.WithVerbose(c.verbose.Log))
		entry = &cache.Entry{
			Headers:    t.Headers,
			Records:    res.Records,
			Original:   res.Original,
			Duplicates: res.Duplicates,
			Filtered:   res.Filtered,
		}
	}

	out := &table.Table{Headers: entry.Headers, Records: entry.Records}
	c.verbose.Logf("atomic write %s", job.Output)
	if err := csvfile.Write(job.Output, out, csvfile.WithCRLF(c.crlf)); err != nil {
		return nil, fmt.Errorf("writing %s: %w", job.Output, err)
	}

	if store != nil && !cached {
		c.storeResult(store, key, entry)
	}

	return &Report{
		Input:      job.Input,
		Output:     job.Output,
		Original:   entry.Original,
		Duplicates: entry.Duplicates,
		Filtered:   entry.Filtered,
		Cleaned:    len(entry.Records),
		Cached:     cached,
	}, nil
}

// lookup consults the cache. Lookup failures are warnings; the run falls
// back to cleaning from scratch.
func (c *Cleaner) lookup(store *cache.Cache, raw []byte, f *clean.Filter) (string, *cache.Entry, bool) {
	if store == nil {
		return "", nil, false
	}

	key := cache.Key(raw, f.Column(), f.Pattern())
	c.verbose.Logf("cache lookup %s", shortKey(key))

	entry, ok, err := store.Lookup(key)
	if err != nil {
		log.Printf("warning: cache lookup failed, cleaning from source: %v", err)
		return key, nil, false
	}
	if !ok {
		c.verbose.Log("cache miss")
		return key, nil, false
	}

	c.verbose.Log("cache hit")
	clean.LogCounts(c.verbose.Log, entry.Original, len(entry.Records))
	return key, entry, true
}

// storeResult saves entry after the output is written. The output file is the
// deliverable, so cache failures here are logged and swallowed.
func (c *Cleaner) storeResult(store *cache.Cache, key string, entry *cache.Entry) {
	if err := store.Store(key, entry); err != nil {
		log.Printf("warning: cache update failed after successful write: %v", err)
		return
	}
	c.verbose.Logf("cache store %s", shortKey(key))

	if err := store.Prune(c.cacheLimit); err != nil {
		log.Printf("warning: cache prune failed: %v", err)
	}
}

// acquireExclusive takes the cache directory lock with the configured timeout.
// It returns an unlock function that must be deferred by the caller.
func (c *Cleaner) acquireExclusive() (unlock func(), err error) {
	lockPath := filepath.Join(c.cacheDir, "lock")
	fl := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), c.lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return nil, fmt.Errorf("%w: could not acquire lock on %s - another process may be using csvclean", ErrLockTimeout, lockPath)
	}
	c.verbose.Log("lock acquired (exclusive)")

	return func() {
		_ = fl.Unlock()
		c.verbose.Log("lock released")
	}, nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
