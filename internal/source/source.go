// Package source models the live document that an analyzer report is
// reconciled against: a flat Python script or a Jupyter notebook.
package source

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NoCell is the cell index used for flat scripts and for unmatched lines.
const NoCell = -1

// Kind is the cell kind a line inherits.
type Kind string

const (
	Code     Kind = "code"
	Markdown Kind = "markdown"
)

// Cell is one notebook cell. A flat script is a single code cell.
type Cell struct {
	Kind  Kind
	Lines []string
}

// Document is an in-memory snapshot of the analyzed file. It is never
// mutated by the packages that consume it.
type Document struct {
	Path     string
	Notebook bool
	Cells    []Cell
}

// Line is one line of a Document, addressed by (Cell, Line). Line is 0-based
// within its cell, or within the file for scripts (where Cell is NoCell).
type Line struct {
	Cell int
	Line int
	Text string
	Kind Kind
}

// FromScript builds a flat document from script text.
func FromScript(text string) Document {
	return Document{Cells: []Cell{{Kind: Code, Lines: SplitLines(text)}}}
}

// Load reads a script or notebook from disk, choosing by extension.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc Document
	if strings.EqualFold(filepath.Ext(path), ".ipynb") {
		doc, err = ParseNotebook(data)
		if err != nil {
			return Document{}, fmt.Errorf("parsing notebook %s: %w", path, err)
		}
	} else {
		doc = FromScript(string(data))
	}
	doc.Path = path
	return doc, nil
}

// Lines derives every line of the document in document order: cell index
// ascending, then line index ascending.
func (d Document) Lines() []Line {
	var out []Line
	for ci, cell := range d.Cells {
		cellIndex := ci
		if !d.Notebook {
			cellIndex = NoCell
		}
		for li, text := range cell.Lines {
			out = append(out, Line{Cell: cellIndex, Line: li, Text: text, Kind: cell.Kind})
		}
	}
	return out
}

// LineCount returns the total number of lines across all cells.
func (d Document) LineCount() int {
	n := 0
	for _, c := range d.Cells {
		n += len(c.Lines)
	}
	return n
}

// Version hashes the document content. Two documents with the same cells,
// kinds and text share a version regardless of Path.
func (d Document) Version() string {
	h := sha256.New()
	if d.Notebook {
		h.Write([]byte("notebook\x00"))
	} else {
		h.Write([]byte("script\x00"))
	}
	for _, c := range d.Cells {
		fmt.Fprintf(h, "%s\x00%d\x00", c.Kind, len(c.Lines))
		for _, l := range c.Lines {
			h.Write([]byte(l))
			h.Write([]byte{'\n'})
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// SplitLines splits text on newlines, dropping carriage returns. A single
// trailing newline does not produce an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

type notebookFile struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// ParseNotebook reads .ipynb JSON. Cells that are neither code nor markdown
// (raw cells) are kept as markdown so that cell ordinals match the editor.
func ParseNotebook(data []byte) (Document, error) {
	var nb notebookFile
	if err := json.Unmarshal(data, &nb); err != nil {
		return Document{}, err
	}
	doc := Document{Notebook: true}
	for i, c := range nb.Cells {
		text, err := cellSource(c.Source)
		if err != nil {
			return Document{}, fmt.Errorf("cell %d: %w", i, err)
		}
		kind := Markdown
		if c.CellType == "code" {
			kind = Code
		}
		doc.Cells = append(doc.Cells, Cell{Kind: kind, Lines: SplitLines(text)})
	}
	return doc, nil
}

// cellSource accepts both the string and the list-of-strings encodings.
func cellSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("source must be a string or a list of strings")
	}
	return strings.Join(parts, ""), nil
}

// ToScript flattens a notebook into a Python script: code cells verbatim,
// markdown lines prefixed with "# ", and a blank line after every cell.
func ToScript(d Document) string {
	var lines []string
	for _, c := range d.Cells {
		for _, l := range c.Lines {
			if c.Kind == Markdown {
				l = "# " + l
			}
			lines = append(lines, l)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
