package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/jensroland/leakmap/internal/annotate"
	"github.com/jensroland/leakmap/internal/linemap"
	"github.com/jensroland/leakmap/internal/report"
	"github.com/jensroland/leakmap/internal/source"
)

// Location renders the source side of a mapping, 1-based.
func Location(m linemap.Mapping) string {
	switch {
	case !m.Matched():
		return "(report only)"
	case m.Cell == source.NoCell:
		return fmt.Sprintf("line %d", m.Line+1)
	default:
		return fmt.Sprintf("cell %d, line %d", m.Cell+1, m.Line+1)
	}
}

// FormatMappings writes one row per mapping: report line, source location,
// kind, and the matched text.
func FormatMappings(w io.Writer, mappings []linemap.Mapping) {
	if len(mappings) == 0 {
		fmt.Fprintln(w, "No mappings.")
		return
	}
	for _, m := range mappings {
		loc := Location(m)
		color := Cyan
		if !m.Matched() {
			color = Yellow
		}
		fmt.Fprintf(w, "  %sL%-5d%s %s%-18s%s %-8s %s\n",
			Bold, m.ReportLine, Reset,
			color, loc, Reset,
			m.Kind, truncate(m.Text, 60))
	}
}

// FormatReportLines writes the extracted report lines, marking comments.
func FormatReportLines(w io.Writer, lines []report.Line) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No report lines.")
		return
	}
	for _, l := range lines {
		marker := " "
		if l.Comment {
			marker = "#"
		}
		anchor := ""
		if l.Anchor != 0 {
			anchor = fmt.Sprintf(" %s(id %d)%s", Dim, l.Anchor, Reset)
		}
		fmt.Fprintf(w, "  %s%5d%s %s %s%s\n", Dim, l.Number, Reset, marker, l.Content, anchor)
	}
}

// FormatAnnotation writes one finding with every source location it lands on.
func FormatAnnotation(w io.Writer, a annotate.Annotation) {
	color := Blue
	switch a.Finding.Severity {
	case report.SeverityError:
		color = Red
	case report.SeverityWarning:
		color = Yellow
	}
	fmt.Fprintf(w, "%s%-7s%s %s", color, a.Finding.Severity, Reset, a.Finding.Message())
	if a.ReportLine > 0 {
		fmt.Fprintf(w, " %s(report L%d)%s", Dim, a.ReportLine, Reset)
	}
	fmt.Fprintln(w)

	if !a.Anchored() {
		fmt.Fprintf(w, "        %sdocument level%s\n", Dim, Reset)
	}
	for _, m := range a.Mappings {
		if m.Matched() {
			fmt.Fprintf(w, "        %s: %s\n", Location(m), truncate(m.Text, 60))
		}
	}
	for _, t := range a.Targets {
		if t.Resolved {
			fmt.Fprintf(w, "        %s-> %s%s\n", Dim, Location(t.Mapping), Reset)
		} else {
			fmt.Fprintf(w, "        %s-> id %d (unresolved)%s\n", Dim, t.ID, Reset)
		}
	}
}

// FormatSummary writes the analyzer's summary table.
func FormatSummary(w io.Writer, rows []report.SummaryRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%sSummary%s\n", Bold, Reset)
	for _, r := range rows {
		fmt.Fprintf(w, "  %s\n", r.String())
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
