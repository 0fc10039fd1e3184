// Package linemap reconciles the lines of an analyzer report with the lines
// of the source document the report was generated from.
//
// The report renderer drops, re-indents and renumbers lines, and notebooks
// have no global line numbering, so positions cannot be trusted. Lines are
// matched by content instead: every report line is compared against every
// non-blank source line, all matches are kept, and report lines that match
// nothing get a sentinel entry so they stay addressable.
package linemap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jensroland/leakmap/internal/lineset"
	"github.com/jensroland/leakmap/internal/report"
	"github.com/jensroland/leakmap/internal/source"
)

// NoLine is the line index of a sentinel mapping.
const NoLine = -1

// Mapping links one report line to one source line. Line is 0-based within
// its cell (or file, for scripts).
type Mapping struct {
	ReportLine int         `json:"report_line"`
	Cell       int         `json:"cell"`
	Line       int         `json:"line"`
	Kind       source.Kind `json:"kind"`
	// Text is the source line that matched, or the report content for a
	// sentinel.
	Text string `json:"matched_text"`
}

// Matched reports whether the mapping points at a real source line.
func (m Mapping) Matched() bool {
	return m.Line != NoLine
}

func (m Mapping) String() string {
	switch {
	case !m.Matched():
		return fmt.Sprintf("report L%d -> (no source)", m.ReportLine)
	case m.Cell == source.NoCell:
		return fmt.Sprintf("report L%d -> line %d", m.ReportLine, m.Line+1)
	default:
		return fmt.Sprintf("report L%d -> cell %d, line %d", m.ReportLine, m.Cell+1, m.Line+1)
	}
}

func sentinel(l report.Line) Mapping {
	return Mapping{ReportLine: l.Number, Cell: source.NoCell, Line: NoLine, Kind: source.Code, Text: l.Content}
}

// Reconcile matches report lines against source lines.
//
// Comment lines must equal the trimmed source line exactly. Code lines,
// after any trailing inline comment is stripped, must be a substring of the
// trimmed source line. Blank source lines never match, and report lines
// whose cleaned content is empty match nothing. Source lines are visited in
// document order and every match is recorded.
func Reconcile(lines []report.Line, src []source.Line) *Table {
	var entries []Mapping
	matched := make(map[int]bool)

	for _, rl := range lines {
		m, ok := newMatcher(rl)
		if !ok {
			continue
		}
		for _, sl := range src {
			if !m.matches(sl.Text) {
				continue
			}
			entries = append(entries, Mapping{
				ReportLine: rl.Number,
				Cell:       sl.Cell,
				Line:       sl.Line,
				Kind:       sl.Kind,
				Text:       sl.Text,
			})
			matched[rl.Number] = true
		}
	}

	// Report numbers can repeat; one sentinel per unmatched number.
	added := make(map[int]bool)
	for _, rl := range lines {
		if matched[rl.Number] || added[rl.Number] {
			continue
		}
		added[rl.Number] = true
		entries = append(entries, sentinel(rl))
	}

	return NewTable(entries)
}

type matcher struct {
	want  string
	exact bool
}

func newMatcher(l report.Line) (matcher, bool) {
	content := strings.TrimSpace(l.Content)
	if l.Comment {
		return matcher{want: content, exact: true}, content != ""
	}
	cleaned := strings.TrimSpace(StripInlineComment(content))
	return matcher{want: cleaned}, cleaned != ""
}

func (m matcher) matches(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if m.exact {
		return t == m.want
	}
	return strings.Contains(t, m.want)
}

// StripInlineComment drops a trailing Python comment from a code line. A
// '#' inside a string literal does not start a comment. Lines without a
// comment are returned unchanged, which is the case for every report seen
// so far.
func StripInlineComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return s[:i]
		}
	}
	return s
}

// Table is an immutable, ordered set of mappings: ascending report line,
// then ascending (cell, line). Build one per analysis run and discard it
// when either the report or the document changes.
type Table struct {
	entries  []Mapping
	byReport map[int][]Mapping
	bySource map[[2]int][]Mapping
}

// NewTable orders and indexes entries, dropping exact duplicates. It is
// used by Reconcile and to rebuild cached tables.
func NewTable(entries []Mapping) *Table {
	sorted := append([]Mapping(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ReportLine != b.ReportLine {
			return a.ReportLine < b.ReportLine
		}
		if a.Cell != b.Cell {
			return a.Cell < b.Cell
		}
		return a.Line < b.Line
	})

	t := &Table{
		byReport: make(map[int][]Mapping),
		bySource: make(map[[2]int][]Mapping),
	}
	for i, m := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			if prev.ReportLine == m.ReportLine && prev.Cell == m.Cell && prev.Line == m.Line {
				continue
			}
		}
		t.entries = append(t.entries, m)
		t.byReport[m.ReportLine] = append(t.byReport[m.ReportLine], m)
		if m.Matched() {
			key := [2]int{m.Cell, m.Line}
			t.bySource[key] = append(t.bySource[key], m)
		}
	}
	return t
}

// Entries returns a copy of all mappings in table order.
func (t *Table) Entries() []Mapping {
	return append([]Mapping(nil), t.entries...)
}

func (t *Table) Len() int { return len(t.entries) }

// ForReportLine returns the mappings of report line n, ordered by
// (cell, line). A report line that matched nothing has one sentinel.
func (t *Table) ForReportLine(n int) []Mapping {
	return append([]Mapping(nil), t.byReport[n]...)
}

// ForSourceLine returns the mappings that point at (cell, line), ordered by
// report line. Use source.NoCell as the cell for scripts.
func (t *Table) ForSourceLine(cell, line int) []Mapping {
	return append([]Mapping(nil), t.bySource[[2]int{cell, line}]...)
}

// Best returns the first real match of report line n in document order.
// ok is false when the line is unknown or only has a sentinel.
func (t *Table) Best(n int) (m Mapping, ok bool) {
	for _, m := range t.byReport[n] {
		if m.Matched() {
			return m, true
		}
	}
	return Mapping{}, false
}

// ReportLines returns every report line number present in the table.
func (t *Table) ReportLines() lineset.LineSet {
	nums := make([]int, 0, len(t.byReport))
	for n := range t.byReport {
		nums = append(nums, n)
	}
	return lineset.New(nums...)
}

// Unmatched returns the report line numbers that only have a sentinel.
func (t *Table) Unmatched() lineset.LineSet {
	var nums []int
	for n, ms := range t.byReport {
		if len(ms) == 1 && !ms[0].Matched() {
			nums = append(nums, n)
		}
	}
	return lineset.New(nums...)
}

// Select returns the mappings whose report line is in ls, in table order.
// An empty set selects everything.
func (t *Table) Select(ls lineset.LineSet) []Mapping {
	if ls.IsEmpty() {
		return t.Entries()
	}
	var out []Mapping
	for _, m := range t.entries {
		if ls.Contains(m.ReportLine) {
			out = append(out, m)
		}
	}
	return out
}
