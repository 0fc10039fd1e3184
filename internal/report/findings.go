package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// FindingKind classifies an analyzer button.
type FindingKind string

const (
	Leakage   FindingKind = "leakage"
	TrainData FindingKind = "train"
	TestData  FindingKind = "test"
	Highlight FindingKind = "highlight"
)

// Severity mirrors the diagnostic levels an editor would show.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const highlightLabel = "highlight train/test sites"

// Finding is one button the analyzer attached to a report line.
type Finding struct {
	Kind       FindingKind `json:"kind"`
	Severity   Severity    `json:"severity"`
	Label      string      `json:"label"`
	Background string      `json:"background,omitempty"`
	OnClick    string      `json:"onclick,omitempty"`
	// Anchor is the id of the report line the button follows, 0 if none.
	Anchor int `json:"anchor"`
	// Pair holds the two report line ids of a highlight_lines action.
	Pair [2]int `json:"pair"`
}

// Message is the diagnostic text for the finding.
func (f Finding) Message() string {
	switch f.Kind {
	case TrainData, TestData:
		return f.Label + " data"
	default:
		return f.Label
	}
}

// SummaryRow is one row of the report's summary table.
type SummaryRow struct {
	Type      string `json:"type"`
	Detected  string `json:"detected"`
	Locations string `json:"locations"`
}

// Count parses Detected, returning 0 when it is not a number.
func (r SummaryRow) Count() int {
	n, err := strconv.Atoi(strings.TrimSpace(r.Detected))
	if err != nil {
		return 0
	}
	return n
}

func (r SummaryRow) String() string {
	return fmt.Sprintf("Leakage: %s, Detected: %s, Locations: %s", r.Type, r.Detected, r.Locations)
}

var highlightRe = regexp.MustCompile(`highlight_lines\(\[(\d+),\s*(\d+)\]\)`)

// ParseHighlightLines extracts A and B from an onclick value of the form
// highlight_lines([A, B]).
func ParseHighlightLines(onclick string) (a, b int, ok bool) {
	m := highlightRe.FindStringSubmatch(onclick)
	if m == nil {
		return 0, 0, false
	}
	a, errA := strconv.Atoi(m[1])
	b, errB := strconv.Atoi(m[2])
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return a, b, true
}

// ExtractFindings runs the default Extractor.
func ExtractFindings(htmlText string) []Finding {
	return Extractor{}.Findings(htmlText)
}

// Findings returns the classified buttons of the report in document order.
// Buttons that are neither leakage markers, train/test labels nor highlight
// actions are dropped.
func (e Extractor) Findings(htmlText string) []Finding {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}
	var out []Finding
	for _, btn := range findAll(doc, func(n *html.Node) bool { return isElement(n, "button") }) {
		f := Finding{
			Label:      strings.TrimSpace(textContent(btn)),
			Background: styleProperty(btn, "background-color"),
			Anchor:     buttonAnchor(btn),
		}
		f.OnClick, _ = attr(btn, "onclick")

		switch {
		case f.Background == "red":
			f.Kind, f.Severity = Leakage, SeverityError
		case f.Label == "train":
			f.Kind, f.Severity = TrainData, SeverityWarning
		case f.Label == "test":
			f.Kind, f.Severity = TestData, SeverityWarning
		case f.Label == highlightLabel:
			a, b, ok := ParseHighlightLines(f.OnClick)
			if !ok {
				continue
			}
			f.Kind, f.Severity, f.Pair = Highlight, SeverityInfo, [2]int{a, b}
		default:
			continue
		}
		out = append(out, f)
	}
	return out
}

// buttonAnchor finds the line a button belongs to: the nearest preceding
// sibling span with an integer id, searching outwards through the
// button's ancestors, any of which may itself be the line span.
func buttonAnchor(btn *html.Node) int {
	for n := btn; n != nil && n.Type == html.ElementNode; n = n.Parent {
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if isElement(s, "span") {
				if id, ok := numericID(s); ok {
					return id
				}
			}
		}
		if p := n.Parent; isElement(p, "span") {
			if id, ok := numericID(p); ok {
				return id
			}
		}
	}
	return 0
}

// ExtractSummary runs the default Extractor.
func ExtractSummary(htmlText string) []SummaryRow {
	return Extractor{}.Summary(htmlText)
}

// Summary reads the rows of table.sum. Rows with header cells are skipped;
// when the table has none, its first row is taken to be the header.
func (e Extractor) Summary(htmlText string) []SummaryRow {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}
	table := findFirst(doc, func(n *html.Node) bool { return isElement(n, "table") && hasClass(n, "sum") })
	if table == nil {
		return nil
	}
	rows := findAll(table, func(n *html.Node) bool { return isElement(n, "tr") })

	sawHeader := false
	for _, r := range rows {
		if findFirst(r, func(n *html.Node) bool { return isElement(n, "th") }) != nil {
			sawHeader = true
			break
		}
	}

	var out []SummaryRow
	for i, r := range rows {
		if i == 0 && !sawHeader {
			continue
		}
		cells := findAll(r, func(n *html.Node) bool { return isElement(n, "td") })
		if len(cells) < 3 {
			continue
		}
		out = append(out, SummaryRow{
			Type:      strings.TrimSpace(textContent(cells[0])),
			Detected:  strings.TrimSpace(textContent(cells[1])),
			Locations: strings.TrimSpace(textContent(cells[2])),
		})
	}
	return out
}
