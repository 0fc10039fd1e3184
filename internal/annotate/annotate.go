// Package annotate places analyzer findings on the source document through a
// reconciled line table.
package annotate

import (
	"github.com/jensroland/leakmap/internal/linemap"
	"github.com/jensroland/leakmap/internal/report"
)

// Target is one end of a highlight_lines action.
type Target struct {
	// ID is the line id as written by the analyzer.
	ID         int             `json:"id"`
	ReportLine int             `json:"report_line"`
	Mapping    linemap.Mapping `json:"mapping"`
	Resolved   bool            `json:"resolved"`
}

// Annotation is a finding together with every source position its report
// line maps to.
type Annotation struct {
	Finding    report.Finding    `json:"finding"`
	ReportLine int               `json:"report_line"`
	Mappings   []linemap.Mapping `json:"mappings"`
	Targets    []Target          `json:"targets,omitempty"`
}

// Anchored reports whether the annotation has at least one real source
// position. Unanchored annotations are shown at document level.
func (a Annotation) Anchored() bool {
	for _, m := range a.Mappings {
		if m.Matched() {
			return true
		}
	}
	return false
}

// Resolver translates the analyzer's own line ids into extractor line
// numbers and looks them up in a table.
type Resolver struct {
	table      *linemap.Table
	anchors    map[int]int
	hasAnchors bool
}

func NewResolver(lines []report.Line, table *linemap.Table) *Resolver {
	r := &Resolver{table: table, anchors: make(map[int]int)}
	for _, l := range lines {
		if l.Anchor == 0 {
			continue
		}
		r.hasAnchors = true
		if _, dup := r.anchors[l.Anchor]; !dup {
			r.anchors[l.Anchor] = l.Number
		}
	}
	return r
}

// ReportLine returns the report line number for an analyzer id, or 0. When
// the report carries no ids at all, ids are taken to be line numbers.
func (r *Resolver) ReportLine(id int) int {
	if id <= 0 {
		return 0
	}
	if n, ok := r.anchors[id]; ok {
		return n
	}
	if !r.hasAnchors {
		return id
	}
	return 0
}

// Target resolves one analyzer id to its best source position.
func (r *Resolver) Target(id int) Target {
	t := Target{ID: id, ReportLine: r.ReportLine(id)}
	if t.ReportLine == 0 {
		return t
	}
	t.Mapping, t.Resolved = r.table.Best(t.ReportLine)
	return t
}

// Annotate resolves findings in the order given.
func (r *Resolver) Annotate(findings []report.Finding) []Annotation {
	out := make([]Annotation, 0, len(findings))
	for _, f := range findings {
		a := Annotation{Finding: f, ReportLine: r.ReportLine(f.Anchor)}
		if a.ReportLine != 0 {
			a.Mappings = r.table.ForReportLine(a.ReportLine)
		}
		if f.Kind == report.Highlight {
			a.Targets = []Target{r.Target(f.Pair[0]), r.Target(f.Pair[1])}
		}
		out = append(out, a)
	}
	return out
}

// Annotate is a shorthand for NewResolver(lines, table).Annotate(findings).
func Annotate(lines []report.Line, findings []report.Finding, table *linemap.Table) []Annotation {
	return NewResolver(lines, table).Annotate(findings)
}
