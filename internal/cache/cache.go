// Package cache provides a SQLite-backed cache of cleaned results. Entries are
// keyed by a SHA256 digest of the source bytes and the filter options, so a
// re-run over unchanged input reuses the stored output instead of cleaning again.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leeovery/csvclean/internal/table"
)

const timeFormat = "2006-01-02T15:04:05Z"

// formatVersion is stored in PRAGMA user_version. Version 2 stores cells and
// headers as base64 byte strings.
const formatVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS results (
  key TEXT PRIMARY KEY,
  headers TEXT NOT NULL,
  original INTEGER NOT NULL,
  duplicates INTEGER NOT NULL,
  filtered INTEGER NOT NULL,
  created TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS result_rows (
  key TEXT NOT NULL,
  pos INTEGER NOT NULL,
  cells TEXT NOT NULL,
  PRIMARY KEY (key, pos)
);
`

// Entry is one cached cleaning result.
type Entry struct {
	Headers    []string
	Records    []table.Record
	Original   int
	Duplicates int
	Filtered   int
}

// Cache wraps the SQLite database holding cleaned results.
type Cache struct {
	db   *sql.DB
	path string
}

// New opens or creates a cache database at dbPath and initializes the schema.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	if err := checkVersion(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, path: dbPath}, nil
}

// Open opens the cache at dbPath, deleting and recreating the file when it is
// corrupted or its schema is unusable. The cache is expendable; losing it only
// costs a re-clean.
func Open(dbPath string) (*Cache, error) {
	c, err := tryOpen(dbPath)
	if err == nil {
		return c, nil
	}

	log.Printf("warning: cache db unusable, recreating: %v", err)
	if rmErr := os.Remove(dbPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return nil, fmt.Errorf("removing unusable cache: %w", rmErr)
	}
	return New(dbPath)
}

// checkVersion stamps an empty database with formatVersion and rejects one
// written in another format.
func checkVersion(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading cache format version: %w", err)
	}
	if version == formatVersion {
		return nil
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return fmt.Errorf("counting cached results: %w", err)
	}
	if version != 0 || n > 0 {
		return fmt.Errorf("cache format version %d, want %d", version, formatVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", formatVersion)); err != nil {
		return fmt.Errorf("setting cache format version: %w", err)
	}
	return nil
}

// tryOpen opens the cache and verifies each table is queryable.
func tryOpen(dbPath string) (*Cache, error) {
	c, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	for _, tbl := range []string{"results", "result_rows"} {
		if _, err := c.db.Exec("SELECT key FROM " + tbl + " LIMIT 0"); err != nil {
			c.Close()
			return nil, fmt.Errorf("%s table unusable: %w", tbl, err)
		}
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key derives the cache key for a run over raw with the given filter options.
func Key(raw []byte, column, pattern string) string {
	sum := sha256.Sum256(raw)

	h := sha256.New()
	h.Write(sum[:])
	fmt.Fprintf(h, "%d:%s%d:%s", len(column), column, len(pattern), pattern)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Lookup returns the entry stored under key. The boolean is false on a miss.
func (c *Cache) Lookup(key string) (*Entry, bool, error) {
	var headersJSON string
	e := &Entry{}

	err := c.db.QueryRow(
		"SELECT headers, original, duplicates, filtered FROM results WHERE key = ?", key,
	).Scan(&headersJSON, &e.Original, &e.Duplicates, &e.Filtered)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying result: %w", err)
	}

	var rawHeaders [][]byte
	if err := json.Unmarshal([]byte(headersJSON), &rawHeaders); err != nil {
		return nil, false, fmt.Errorf("decoding cached headers: %w", err)
	}
	e.Headers = make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		e.Headers[i] = string(h)
	}

	rows, err := c.db.Query("SELECT cells FROM result_rows WHERE key = ? ORDER BY pos", key)
	if err != nil {
		return nil, false, fmt.Errorf("querying result rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return nil, false, fmt.Errorf("scanning result row: %w", err)
		}
		rec, err := decodeRecord(e.Headers, cellsJSON)
		if err != nil {
			return nil, false, err
		}
		e.Records = append(e.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating result rows: %w", err)
	}

	return e, true, nil
}

// Store saves e under key, replacing any previous entry. The write runs in a
// single transaction.
func (c *Cache) Store(key string, e *Entry) error {
	rawHeaders := make([][]byte, len(e.Headers))
	for i, h := range e.Headers {
		rawHeaders[i] = append([]byte{}, h...)
	}
	headersJSON, err := json.Marshal(rawHeaders)
	if err != nil {
		return fmt.Errorf("encoding headers: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning store transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM result_rows WHERE key = ?", key); err != nil {
		return fmt.Errorf("clearing result rows: %w", err)
	}

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO results (key, headers, original, duplicates, filtered, created) VALUES (?, ?, ?, ?, ?, ?)",
		key, string(headersJSON), e.Original, e.Duplicates, e.Filtered, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("storing result: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO result_rows (key, pos, cells) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing row insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range e.Records {
		cells, err := encodeRecord(e.Headers, rec)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(key, i, cells); err != nil {
			return fmt.Errorf("storing row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing store transaction: %w", err)
	}
	return nil
}

// Prune keeps the keep most recently stored results and deletes the rest.
func (c *Cache) Prune(keep int) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning prune transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"DELETE FROM results WHERE rowid NOT IN (SELECT rowid FROM results ORDER BY rowid DESC LIMIT ?)",
		keep,
	)
	if err != nil {
		return fmt.Errorf("pruning results: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM result_rows WHERE key NOT IN (SELECT key FROM results)"); err != nil {
		return fmt.Errorf("pruning result rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing prune transaction: %w", err)
	}
	return nil
}

// encodeRecord serializes rec's cells in header order. Cells are stored as
// base64 byte strings so values that are not valid UTF-8 survive unchanged.
// Absent cells are null.
func encodeRecord(headers []string, rec table.Record) (string, error) {
	cells := make([]*[]byte, len(headers))
	for i, h := range headers {
		if v, ok := rec[h]; ok {
			b := append([]byte{}, v...)
			cells[i] = &b
		}
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encoding row: %w", err)
	}
	return string(data), nil
}

func decodeRecord(headers []string, cellsJSON string) (table.Record, error) {
	var cells []*[]byte
	if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
		return nil, fmt.Errorf("decoding cached row: %w", err)
	}
	if len(cells) != len(headers) {
		return nil, fmt.Errorf("cached row has %d cells, header has %d", len(cells), len(headers))
	}

	rec := make(table.Record, len(cells))
	for i, v := range cells {
		if v != nil {
			rec[headers[i]] = string(*v)
		}
	}
	return rec, nil
}
