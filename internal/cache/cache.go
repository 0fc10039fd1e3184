// Package cache stores reconciled line tables in SQLite, keyed by the
// document version and the hash of the report they were computed from. A
// table is only reused when both halves of the key match, so an edited
// document or a re-generated report always recomputes.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jensroland/leakmap/internal/linemap"
	"github.com/jensroland/leakmap/internal/source"
)

// Cache is a handle on the cache database. It is safe for concurrent use.
type Cache struct {
	db *sql.DB
}

// Stats summarizes the cache contents.
type Stats struct {
	Runs     int    `json:"runs"`
	Mappings int    `json:"mappings"`
	Last     string `json:"last_run"`
}

// ReportHash returns the hex SHA-256 of report HTML.
func ReportHash(htmlText string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(htmlText)))
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; concurrent analyses share the handle.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			doc_version TEXT NOT NULL,
			report_hash TEXT NOT NULL,
			run_id TEXT,
			created TEXT NOT NULL,
			PRIMARY KEY (doc_version, report_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS mappings (
			doc_version TEXT NOT NULL,
			report_hash TEXT NOT NULL,
			seq INTEGER NOT NULL,
			report_line INTEGER NOT NULL,
			cell INTEGER NOT NULL,
			line INTEGER NOT NULL,
			kind TEXT NOT NULL,
			text TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS idx_mappings_key ON mappings(doc_version, report_hash, seq)",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached table for the key. ok is false on a miss.
func (c *Cache) Get(docVersion, reportHash string) (table *linemap.Table, ok bool, err error) {
	var runID sql.NullString
	err = c.db.QueryRow(
		"SELECT run_id FROM runs WHERE doc_version = ? AND report_hash = ?",
		docVersion, reportHash).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup run: %w", err)
	}

	rows, err := c.db.Query(`
		SELECT report_line, cell, line, kind, text FROM mappings
		WHERE doc_version = ? AND report_hash = ?
		ORDER BY seq`, docVersion, reportHash)
	if err != nil {
		return nil, false, fmt.Errorf("load mappings: %w", err)
	}
	defer rows.Close()

	var entries []linemap.Mapping
	for rows.Next() {
		var m linemap.Mapping
		var kind string
		var text sql.NullString
		if err := rows.Scan(&m.ReportLine, &m.Cell, &m.Line, &kind, &text); err != nil {
			return nil, false, fmt.Errorf("scan mapping: %w", err)
		}
		m.Kind = source.Kind(kind)
		m.Text = text.String
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return linemap.NewTable(entries), true, nil
}

// Put stores table under the key, replacing any earlier entry.
func (c *Cache) Put(docVersion, reportHash, runID string, table *linemap.Table) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM mappings WHERE doc_version = ? AND report_hash = ?",
		docVersion, reportHash); err != nil {
		return fmt.Errorf("clear mappings: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO runs (doc_version, report_hash, run_id, created)
		VALUES (?, ?, ?, ?)`,
		docVersion, reportHash, runID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO mappings (doc_version, report_hash, seq, report_line, cell, line, kind, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range table.Entries() {
		if _, err := stmt.Exec(docVersion, reportHash, i, m.ReportLine, m.Cell, m.Line, string(m.Kind), m.Text); err != nil {
			return fmt.Errorf("insert mapping: %w", err)
		}
	}
	return tx.Commit()
}

func (c *Cache) Stats() (Stats, error) {
	var s Stats
	var last sql.NullString
	if err := c.db.QueryRow("SELECT COUNT(*), MAX(created) FROM runs").Scan(&s.Runs, &last); err != nil {
		return s, err
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM mappings").Scan(&s.Mappings); err != nil {
		return s, err
	}
	s.Last = last.String
	return s, nil
}

// Clear removes every cached table.
func (c *Cache) Clear() error {
	for _, stmt := range []string{"DELETE FROM mappings", "DELETE FROM runs"} {
		if _, err := c.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
