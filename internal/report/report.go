// Package report reads the leakage analyzer's syntax-highlighted HTML report.
//
// Two layouts are understood. Older reports wrap the code in a two-column
// "highlighttable" whose left column holds the line numbers. Newer reports
// emit a flat <pre> whose direct <span> children are the lines, optionally
// carrying an integer id. The table layout is tried first.
package report

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// DefaultCommentClasses are the Pygments token classes rendered for Python
// comments.
var DefaultCommentClasses = []string{"c", "c1", "ch", "cm", "cs", "cpf"}

// Line is one rendered line of the report.
type Line struct {
	// Number is assigned by the extractor, starting at 1. It never decreases
	// but may repeat and may skip.
	Number  int    `json:"line"`
	Content string `json:"content"`
	Comment bool   `json:"comment"`
	// Anchor is the integer id the report itself gave the line, 0 if none.
	Anchor int `json:"anchor,omitempty"`
}

// Extractor turns report HTML into Lines. The zero value uses
// DefaultCommentClasses.
type Extractor struct {
	CommentClasses []string
}

// ExtractLines runs the default Extractor.
func ExtractLines(htmlText string) []Line {
	return Extractor{}.Lines(htmlText)
}

// Lines extracts report lines in document order. Unparseable input, or
// input without a recognizable code block, yields nil.
func (e Extractor) Lines(htmlText string) []Line {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil
	}
	raw := e.tableLines(doc)
	if len(raw) == 0 {
		raw = e.spanLines(doc)
	}
	return number(raw)
}

type rawLine struct {
	text    string
	comment bool
	anchor  int
	hasID   bool
}

// number assigns line numbers. The counter moves once per line that has an
// explicit id or non-empty text, so blank unidentified lines share the
// number of the line before them.
func number(raw []rawLine) []Line {
	if len(raw) == 0 {
		return nil
	}
	lines := make([]Line, 0, len(raw))
	count := 0
	for _, r := range raw {
		if r.hasID || r.text != "" {
			count++
		}
		n := count
		if n == 0 {
			n = 1
		}
		lines = append(lines, Line{Number: n, Content: r.text, Comment: r.comment, Anchor: r.anchor})
	}
	return lines
}

func (e Extractor) tableLines(doc *html.Node) []rawLine {
	tables := findAll(doc, func(n *html.Node) bool {
		return isElement(n, "table") && hasClass(n, "highlighttable")
	})

	var out []rawLine
	for _, table := range tables {
		rows := findAll(table, func(n *html.Node) bool { return isElement(n, "tr") })
		for _, row := range rows {
			numCell := findFirst(row, func(n *html.Node) bool { return isElement(n, "td") && hasClass(n, "linenos") })
			codeCell := findFirst(row, func(n *html.Node) bool { return isElement(n, "td") && hasClass(n, "code") })
			if numCell == nil || codeCell == nil {
				continue
			}
			numbers := strings.Fields(textContent(numCell))
			for i, seg := range e.segments(codeCell, true) {
				rl := rawLine{text: seg.text(), comment: seg.isComment()}
				if i < len(numbers) {
					if id, err := strconv.Atoi(numbers[i]); err == nil {
						rl.anchor, rl.hasID = id, true
					}
				}
				out = append(out, rl)
			}
		}
	}
	return out
}

func (e Extractor) spanLines(doc *html.Node) []rawLine {
	var pre *html.Node
	if block := findFirst(doc, func(n *html.Node) bool { return hasClass(n, "highlight") }); block != nil {
		if isElement(block, "pre") {
			pre = block
		} else {
			pre = findFirst(block, func(n *html.Node) bool { return isElement(n, "pre") })
		}
	}
	if pre == nil {
		pre = findFirst(doc, func(n *html.Node) bool { return isElement(n, "pre") })
	}
	if pre == nil {
		return nil
	}

	var out []rawLine
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c, "span") {
			continue
		}
		seg := e.segments(c, false)[0]
		rl := rawLine{text: seg.text(), comment: seg.isComment()}
		if id, ok := numericID(c); ok {
			rl.anchor, rl.hasID = id, true
		}
		out = append(out, rl)
	}
	return out
}

// segment accumulates the text of one physical line along with how much of
// its visible text sits inside comment tokens.
type segment struct {
	sb           strings.Builder
	commentChars int
	codeChars    int
}

func (s *segment) text() string { return strings.TrimSpace(s.sb.String()) }

// isComment reports whether comment tokens carry all of the visible text.
func (s *segment) isComment() bool { return s.commentChars > 0 && s.codeChars == 0 }

// segments walks n and returns its text as physical lines. With split
// false everything lands in a single segment. Buttons and scripts the
// analyzer interleaves with the code are ignored.
func (e Extractor) segments(n *html.Node, split bool) []*segment {
	segs := []*segment{{}}
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inComment bool) {
		switch n.Type {
		case html.TextNode:
			parts := []string{n.Data}
			if split {
				parts = strings.Split(n.Data, "\n")
			}
			for i, p := range parts {
				if i > 0 {
					segs = append(segs, &segment{})
				}
				cur := segs[len(segs)-1]
				cur.sb.WriteString(p)
				if visible := len(strings.TrimSpace(p)); visible > 0 {
					if inComment {
						cur.commentChars += visible
					} else {
						cur.codeChars += visible
					}
				}
			}
			return
		case html.ElementNode:
			if n.Data == "button" || n.Data == "script" || n.Data == "style" {
				return
			}
			inComment = inComment || e.isCommentNode(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inComment)
		}
	}
	walk(n, false)

	// A <pre> block ends with a newline; it does not open another line.
	if split && len(segs) > 1 && segs[len(segs)-1].sb.Len() == 0 {
		segs = segs[:len(segs)-1]
	}
	return segs
}

func (e Extractor) commentClasses() []string {
	if len(e.CommentClasses) == 0 {
		return DefaultCommentClasses
	}
	return e.CommentClasses
}

// Fingerprint identifies the settings that change what Lines returns.
// Extractors with equal fingerprints extract identical lines.
func (e Extractor) Fingerprint() string {
	classes := append([]string(nil), e.commentClasses()...)
	sort.Strings(classes)
	return "comment=" + strings.Join(slices.Compact(classes), ",")
}

func (e Extractor) isCommentNode(n *html.Node) bool {
	for _, c := range e.commentClasses() {
		if hasClass(n, c) {
			return true
		}
	}
	return false
}
