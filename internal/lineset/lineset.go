package lineset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LineSet is a sorted, deduplicated set of 1-based report line numbers.
// It prints as compact notation like "5,7-8,12", which is also what the
// --lines flag accepts.
type LineSet struct {
	lines []int
}

// New creates a LineSet from individual line numbers.
func New(lines ...int) LineSet {
	return LineSet{lines: dedupSorted(append([]int(nil), lines...))}
}

// MaxRange is the longest range Parse and FromRange expand.
const MaxRange = 100000

// FromRange creates a LineSet covering [start, end]. Invalid ranges and
// ranges longer than MaxRange yield the empty set.
func FromRange(start, end int) LineSet {
	if start <= 0 || end < start || end-start >= MaxRange {
		return LineSet{}
	}
	lines := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		lines = append(lines, i)
	}
	return LineSet{lines: lines}
}

// Parse reads compact notation: "5", "5-7", "5,7-8,12". A colon is
// accepted as a range separator too ("10:20").
func Parse(s string) (LineSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LineSet{}, nil
	}

	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sep := strings.IndexAny(part, "-:")
		if sep < 0 {
			n, err := strconv.Atoi(part)
			if err != nil {
				return LineSet{}, fmt.Errorf("invalid line number %q: %w", part, err)
			}
			if n <= 0 {
				return LineSet{}, fmt.Errorf("line numbers start at 1, got %d", n)
			}
			lines = append(lines, n)
			continue
		}
		start, err := strconv.Atoi(strings.TrimSpace(part[:sep]))
		if err != nil {
			return LineSet{}, fmt.Errorf("invalid range start %q: %w", part[:sep], err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(part[sep+1:]))
		if err != nil {
			return LineSet{}, fmt.Errorf("invalid range end %q: %w", part[sep+1:], err)
		}
		if start <= 0 || end < start {
			return LineSet{}, fmt.Errorf("invalid range %d-%d", start, end)
		}
		if end-start >= MaxRange {
			return LineSet{}, fmt.Errorf("range %d-%d is longer than %d lines", start, end, MaxRange)
		}
		lines = append(lines, FromRange(start, end).lines...)
	}
	return LineSet{lines: dedupSorted(lines)}, nil
}

// String returns the compact notation.
func (ls LineSet) String() string {
	var parts []string
	for i := 0; i < len(ls.lines); i++ {
		start := ls.lines[i]
		end := start
		for i+1 < len(ls.lines) && ls.lines[i+1] == end+1 {
			i++
			end = ls.lines[i]
		}
		if start == end {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
	}
	return strings.Join(parts, ",")
}

func (ls LineSet) IsEmpty() bool { return len(ls.lines) == 0 }

func (ls LineSet) Len() int { return len(ls.lines) }

// Lines returns the sorted line numbers. The slice must not be modified.
func (ls LineSet) Lines() []int { return ls.lines }

// Contains reports whether line is in the set.
func (ls LineSet) Contains(line int) bool {
	i := sort.SearchInts(ls.lines, line)
	return i < len(ls.lines) && ls.lines[i] == line
}

// Union returns a set holding the lines of both sets.
func (ls LineSet) Union(other LineSet) LineSet {
	merged := make([]int, 0, len(ls.lines)+len(other.lines))
	merged = append(merged, ls.lines...)
	merged = append(merged, other.lines...)
	return LineSet{lines: dedupSorted(merged)}
}

// MarshalJSON writes the compact notation as a JSON string, or null.
func (ls LineSet) MarshalJSON() ([]byte, error) {
	if len(ls.lines) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(ls.String())
}

func (ls *LineSet) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		ls.lines = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("line set must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	ls.lines = parsed.lines
	return nil
}

func dedupSorted(nums []int) []int {
	if len(nums) == 0 {
		return nil
	}
	sort.Ints(nums)
	out := nums[:1]
	for _, n := range nums[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}
