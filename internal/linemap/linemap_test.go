package linemap

import (
	"reflect"
	"testing"

	"github.com/jensroland/leakmap/internal/lineset"
	"github.com/jensroland/leakmap/internal/report"
	"github.com/jensroland/leakmap/internal/source"
)

func notebook(cells ...[]string) []source.Line {
	doc := source.Document{Notebook: true}
	for _, lines := range cells {
		doc.Cells = append(doc.Cells, source.Cell{Kind: source.Code, Lines: lines})
	}
	return doc.Lines()
}

func TestEndToEndNotebook(t *testing.T) {
	lines := []report.Line{
		{Number: 1, Content: "import pandas as pd"},
		{Number: 2, Content: "# load data", Comment: true},
	}
	src := notebook([]string{"import pandas as pd", "# load data", ""})

	got := Reconcile(lines, src).Entries()
	want := []Mapping{
		{ReportLine: 1, Cell: 0, Line: 0, Kind: source.Code, Text: "import pandas as pd"},
		{ReportLine: 2, Cell: 0, Line: 1, Kind: source.Code, Text: "# load data"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reconcile =\n%+v\nwant\n%+v", got, want)
	}

	table := Reconcile(lines, src)
	if ms := table.ForSourceLine(0, 2); len(ms) != 0 {
		t.Errorf("blank line should never be referenced, got %+v", ms)
	}
}

func TestCommentExactness(t *testing.T) {
	comment := []report.Line{{Number: 1, Content: "# note", Comment: true}}

	table := Reconcile(comment, notebook([]string{"   # note  "}))
	if m, ok := table.Best(1); !ok || m.Cell != 0 || m.Line != 0 {
		t.Errorf("padded comment should match exactly, got %+v ok=%v", m, ok)
	}

	table = Reconcile(comment, notebook([]string{"  # note extra"}))
	if _, ok := table.Best(1); ok {
		t.Error("comment must not match by substring")
	}
}

func TestCodeSubstring(t *testing.T) {
	code := []report.Line{{Number: 1, Content: "x = 1"}}

	table := Reconcile(code, notebook([]string{"    x = 1  # inline comment"}))
	if _, ok := table.Best(1); !ok {
		t.Error("code should match as a substring of the source line")
	}

	table = Reconcile(code, notebook([]string{"y = 2"}))
	if _, ok := table.Best(1); ok {
		t.Error("unrelated line should not match")
	}
}

func TestAmbiguityPreserved(t *testing.T) {
	lines := []report.Line{{Number: 3, Content: "import pandas"}}
	src := notebook([]string{"x = 0", "import pandas"}, []string{"import pandas"})

	got := Reconcile(lines, src).ForReportLine(3)
	want := []Mapping{
		{ReportLine: 3, Cell: 0, Line: 1, Kind: source.Code, Text: "import pandas"},
		{ReportLine: 3, Cell: 1, Line: 0, Kind: source.Code, Text: "import pandas"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ForReportLine(3) = %+v, want %+v", got, want)
	}

	best, ok := Reconcile(lines, src).Best(3)
	if !ok || best.Cell != 0 || best.Line != 1 {
		t.Errorf("Best should pick the earliest match, got %+v", best)
	}
}

func TestUnmatchedSentinel(t *testing.T) {
	lines := []report.Line{{Number: 1, Content: "model.fit(X, y)"}}
	got := Reconcile(lines, notebook([]string{"import numpy"})).ForReportLine(1)
	want := []Mapping{{ReportLine: 1, Cell: -1, Line: -1, Kind: source.Code, Text: "model.fit(X, y)"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ForReportLine(1) = %+v, want %+v", got, want)
	}
	if got[0].Matched() {
		t.Error("sentinel should not report Matched")
	}
}

func TestBlankLineExclusion(t *testing.T) {
	lines := []report.Line{
		{Number: 1, Content: ""},
		{Number: 2, Content: "", Comment: true},
		{Number: 3, Content: "   "},
	}
	src := notebook([]string{"", "x = 1", "   "})
	table := Reconcile(lines, src)
	for n := 1; n <= 3; n++ {
		ms := table.ForReportLine(n)
		if len(ms) != 1 || ms[0].Matched() {
			t.Errorf("report line %d: expected a lone sentinel, got %+v", n, ms)
		}
	}
}

func TestAllCommentCodeLineIsDiscarded(t *testing.T) {
	// A code line whose content is entirely a comment carries no signal.
	lines := []report.Line{{Number: 1, Content: "# leaked through"}}
	table := Reconcile(lines, notebook([]string{"# leaked through"}))
	if _, ok := table.Best(1); ok {
		t.Error("all-comment code line should not match")
	}
}

func TestInlineCommentStripped(t *testing.T) {
	lines := []report.Line{{Number: 1, Content: "df = load()  # raw data"}}
	table := Reconcile(lines, notebook([]string{"df = load()"}))
	if _, ok := table.Best(1); !ok {
		t.Error("trailing comment in report content should be ignored")
	}
}

func TestStripInlineComment(t *testing.T) {
	tests := []struct{ in, want string }{
		{"x = 1", "x = 1"},
		{"x = 1  # one", "x = 1  "},
		{`url = "a#b"`, `url = "a#b"`},
		{`s = 'it\'s # not'  # yes`, `s = 'it\'s # not'  `},
		{"# all comment", ""},
	}
	for _, tt := range tests {
		if got := StripInlineComment(tt.in); got != tt.want {
			t.Errorf("StripInlineComment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOrderingAndCompleteness(t *testing.T) {
	lines := []report.Line{
		{Number: 1, Content: "a = 1"},
		{Number: 2, Content: "missing()"},
		{Number: 3, Content: "b"},
		{Number: 3, Content: "unknown"},
	}
	src := notebook([]string{"b = 2", "a = 1"}, []string{"a = 1", "b += a"})
	table := Reconcile(lines, src)

	entries := table.Entries()
	for i := 1; i < len(entries); i++ {
		p, c := entries[i-1], entries[i]
		if p.ReportLine > c.ReportLine ||
			(p.ReportLine == c.ReportLine && (p.Cell > c.Cell || (p.Cell == c.Cell && p.Line >= c.Line))) {
			t.Fatalf("entries out of order at %d: %+v then %+v", i, p, c)
		}
	}
	if got := table.ReportLines().String(); got != "1-3" {
		t.Errorf("ReportLines = %q, want 1-3", got)
	}
	if got := table.Unmatched().String(); got != "2" {
		t.Errorf("Unmatched = %q, want 2", got)
	}
	// Line 3 has real matches, so its unmatched twin adds no sentinel.
	for _, m := range table.ForReportLine(3) {
		if !m.Matched() {
			t.Errorf("unexpected sentinel for line 3: %+v", m)
		}
	}
}

func TestDeterminism(t *testing.T) {
	lines := []report.Line{
		{Number: 1, Content: "x"},
		{Number: 2, Content: "# c", Comment: true},
		{Number: 4, Content: "nothing here"},
	}
	src := notebook([]string{"x = 1", "# c", "y = x"}, []string{"# c", "x"})
	first := Reconcile(lines, src).Entries()
	for i := 0; i < 20; i++ {
		if again := Reconcile(lines, src).Entries(); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestEmptyInputs(t *testing.T) {
	if n := Reconcile(nil, notebook([]string{"x"})).Len(); n != 0 {
		t.Errorf("no report lines should give an empty table, got %d entries", n)
	}

	lines := []report.Line{{Number: 1, Content: "x"}, {Number: 2, Content: "y"}}
	table := Reconcile(lines, nil)
	if table.Len() != 2 || table.Unmatched().String() != "1-2" {
		t.Errorf("empty source should leave everything unmatched: %+v", table.Entries())
	}
}

func TestScriptMode(t *testing.T) {
	doc := source.FromScript("import numpy as np\n\nX = np.zeros(3)\n")
	lines := []report.Line{{Number: 1, Content: "X = np.zeros(3)"}}
	table := Reconcile(lines, doc.Lines())

	m, ok := table.Best(1)
	if !ok || m.Cell != source.NoCell || m.Line != 2 {
		t.Fatalf("Best(1) = %+v ok=%v", m, ok)
	}
	if got := table.ForSourceLine(source.NoCell, 2); len(got) != 1 {
		t.Errorf("ForSourceLine = %+v", got)
	}
	if m.String() != "report L1 -> line 3" {
		t.Errorf("String() = %q", m.String())
	}
}

func TestMarkdownKind(t *testing.T) {
	doc := source.Document{Notebook: true, Cells: []source.Cell{
		{Kind: source.Markdown, Lines: []string{"# Title"}},
	}}
	lines := []report.Line{{Number: 1, Content: "# Title", Comment: true}}
	m, ok := Reconcile(lines, doc.Lines()).Best(1)
	if !ok || m.Kind != source.Markdown {
		t.Errorf("expected markdown match, got %+v", m)
	}
}

func TestNewTableDedupAndCopy(t *testing.T) {
	in := []Mapping{
		{ReportLine: 2, Cell: 0, Line: 1, Text: "b"},
		{ReportLine: 1, Cell: 0, Line: 0, Text: "a"},
		{ReportLine: 2, Cell: 0, Line: 1, Text: "b"},
	}
	table := NewTable(in)
	if table.Len() != 2 {
		t.Fatalf("expected duplicates dropped, got %+v", table.Entries())
	}
	if in[0].ReportLine != 2 {
		t.Error("NewTable must not reorder its input")
	}
	got := table.Entries()
	got[0].Text = "changed"
	if table.Entries()[0].Text != "a" {
		t.Error("Entries must return a copy")
	}
}

func TestSelect(t *testing.T) {
	lines := []report.Line{{Number: 1, Content: "a"}, {Number: 2, Content: "b"}, {Number: 3, Content: "c"}}
	table := Reconcile(lines, notebook([]string{"a", "b", "c"}))
	sel, _ := lineset.Parse("2-3")
	got := table.Select(sel)
	if len(got) != 2 || got[0].ReportLine != 2 || got[1].ReportLine != 3 {
		t.Errorf("Select = %+v", got)
	}
	if len(table.Select(lineset.LineSet{})) != 3 {
		t.Error("empty selection should return everything")
	}
}
