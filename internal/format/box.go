package format

import (
	"fmt"
	"strings"
)

// FormatBox draws lines inside a titled box sized to the terminal. Long
// lines are word-wrapped; empty strings become blank rows.
func FormatBox(title string, lines []string) string {
	innerW := TermWidth() - 4
	if innerW < 30 {
		innerW = 30
	}

	var body []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			body = append(body, "")
			continue
		}
		body = append(body, wordWrap(l, innerW)...)
	}

	top := strings.Repeat("─", innerW+2)
	if title != "" {
		lbl := fmt.Sprintf("─ %s ", title)
		top = lbl + strings.Repeat("─", max(innerW+2-runeLen(lbl), 0))
	}

	out := []string{"┌" + top + "┐"}
	for _, l := range body {
		out = append(out, fmt.Sprintf("│ %s │", padOrTrunc(l, innerW)))
	}
	out = append(out, "└"+strings.Repeat("─", innerW+2)+"┘")
	return strings.Join(out, "\n")
}

// wordWrap breaks text at spaces so no line exceeds width, unless a single
// word is longer than width.
func wordWrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if runeLen(current)+1+runeLen(w) <= width {
			current += " " + w
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

func padOrTrunc(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}

func runeLen(s string) int {
	return len([]rune(s))
}
