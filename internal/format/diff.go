package format

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FormatSideBySideDiff shows how report content differs from the source
// text it matched. Characters only on the left are red, characters only on
// the right are green; shared text is dimmed.
func FormatSideBySideDiff(leftLabel, left, rightLabel, right string) string {
	colW := (TermWidth() - 7) / 2
	if colW < 20 {
		colW = 20
	}
	left = strings.ReplaceAll(left, "\t", "    ")
	right = strings.ReplaceAll(right, "\t", "    ")

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(left, right, false))

	leftRows := wrapRunes(renderSide(diffs, diffmatchpatch.DiffDelete), colW)
	rightRows := wrapRunes(renderSide(diffs, diffmatchpatch.DiffInsert), colW)
	rows := max(len(leftRows), len(rightRows))

	lblL := "─ " + leftLabel + " "
	lblR := "─ " + rightLabel + " "
	out := []string{fmt.Sprintf("┌%s%s┬%s%s┐",
		lblL, strings.Repeat("─", max(colW+2-runeLen(lblL), 0)),
		lblR, strings.Repeat("─", max(colW+2-runeLen(lblR), 0)))}

	for i := 0; i < rows; i++ {
		out = append(out, fmt.Sprintf("│ %s │ %s │", cellAt(leftRows, i, colW), cellAt(rightRows, i, colW)))
	}
	out = append(out, fmt.Sprintf("└%s┴%s┘",
		strings.Repeat("─", colW+2), strings.Repeat("─", colW+2)))
	return strings.Join(out, "\n")
}

// styledRune is one visible character with the color it is drawn in.
type styledRune struct {
	r     rune
	color string
}

// renderSide keeps the equal runs plus the runs of the given side.
func renderSide(diffs []diffmatchpatch.Diff, side diffmatchpatch.Operation) []styledRune {
	color := Red
	if side == diffmatchpatch.DiffInsert {
		color = Green
	}
	var out []styledRune
	for _, d := range diffs {
		c := Dim
		switch d.Type {
		case diffmatchpatch.DiffEqual:
		case side:
			c = color
		default:
			continue
		}
		for _, r := range d.Text {
			out = append(out, styledRune{r: r, color: c})
		}
	}
	return out
}

// wrapRunes splits a styled line into rows of at most width runes, breaking
// on newlines as well.
func wrapRunes(line []styledRune, width int) [][]styledRune {
	rows := [][]styledRune{nil}
	for _, sr := range line {
		cur := len(rows) - 1
		if sr.r == '\n' {
			rows = append(rows, nil)
			continue
		}
		if len(rows[cur]) == width {
			rows = append(rows, nil)
			cur++
		}
		rows[cur] = append(rows[cur], sr)
	}
	return rows
}

func cellAt(rows [][]styledRune, i, width int) string {
	if i >= len(rows) {
		return strings.Repeat(" ", width)
	}
	var sb strings.Builder
	prev := ""
	for _, sr := range rows[i] {
		if sr.color != prev {
			if prev != "" {
				sb.WriteString(Reset)
			}
			sb.WriteString(sr.color)
			prev = sr.color
		}
		sb.WriteRune(sr.r)
	}
	if prev != "" {
		sb.WriteString(Reset)
	}
	sb.WriteString(strings.Repeat(" ", width-len(rows[i])))
	return sb.String()
}
