// Package session holds the results of one analysis run for one document.
// Sessions are owned by the caller; nothing here is global.
package session

import (
	"errors"

	"github.com/google/uuid"

	"github.com/jensroland/leakmap/internal/annotate"
	"github.com/jensroland/leakmap/internal/linemap"
	"github.com/jensroland/leakmap/internal/report"
	"github.com/jensroland/leakmap/internal/source"
)

// ErrDisposed is returned when a disposed session is used.
var ErrDisposed = errors.New("session disposed")

// TableCache is the optional store a session consults before reconciling.
type TableCache interface {
	Get(docVersion, reportHash string) (*linemap.Table, bool, error)
	Put(docVersion, reportHash, runID string, table *linemap.Table) error
}

// HashFunc turns report HTML into the cache key half for the report.
type HashFunc func(htmlText string) string

// Session is one document plus the results of the latest run against it.
// A Session is not safe for concurrent use; run separate sessions instead.
type Session struct {
	doc       source.Document
	extractor report.Extractor
	cache     TableCache
	hash      HashFunc

	runID       string
	lines       []report.Line
	table       *linemap.Table
	annotations []annotate.Annotation
	summary     []report.SummaryRow
	cached      bool
	disposed    bool
}

// New starts a session for doc.
func New(doc source.Document, extractor report.Extractor) *Session {
	return &Session{doc: doc, extractor: extractor, runID: uuid.New().String()}
}

// WithCache enables table caching. hash must be deterministic.
func (s *Session) WithCache(c TableCache, hash HashFunc) *Session {
	s.cache, s.hash = c, hash
	return s
}

// Load processes one report. Cache failures are returned alongside a
// complete result, since the table is recomputed when the cache fails.
func (s *Session) Load(htmlText string) error {
	if s.disposed {
		return ErrDisposed
	}
	s.clear()

	s.lines = s.extractor.Lines(htmlText)
	s.summary = s.extractor.Summary(htmlText)

	var cacheErr error
	var version, key string
	if s.cache != nil {
		version = s.doc.Version()
		key = s.hash(htmlText) + "+" + s.extractor.Fingerprint()
		table, ok, err := s.cache.Get(version, key)
		switch {
		case err != nil:
			cacheErr = err
		case ok:
			s.table, s.cached = table, true
		}
	}
	if s.table == nil {
		s.table = linemap.Reconcile(s.lines, s.doc.Lines())
		if s.cache != nil && cacheErr == nil {
			cacheErr = s.cache.Put(version, key, s.runID, s.table)
		}
	}

	s.annotations = annotate.Annotate(s.lines, s.extractor.Findings(htmlText), s.table)
	return cacheErr
}

// Reset drops the results and starts a new run id.
func (s *Session) Reset() {
	s.clear()
	s.runID = uuid.New().String()
}

// Dispose releases the results. The session cannot be loaded again.
func (s *Session) Dispose() {
	s.clear()
	s.cache = nil
	s.disposed = true
}

func (s *Session) clear() {
	s.lines, s.table, s.annotations, s.summary = nil, nil, nil, nil
	s.cached = false
}

func (s *Session) RunID() string             { return s.runID }
func (s *Session) Document() source.Document { return s.doc }
func (s *Session) Lines() []report.Line      { return s.lines }
func (s *Session) Summary() []report.SummaryRow {
	return s.summary
}

// Table returns the latest table, or nil before Load.
func (s *Session) Table() *linemap.Table { return s.table }

// Cached reports whether the latest table came from the cache.
func (s *Session) Cached() bool { return s.cached }

func (s *Session) Annotations() []annotate.Annotation { return s.annotations }

// HasLeakage reports whether any annotation is a leakage finding.
func (s *Session) HasLeakage() bool {
	for _, a := range s.annotations {
		if a.Finding.Kind == report.Leakage {
			return true
		}
	}
	return false
}
