// Package table implements the structural extraction tier: locating
// the balance-sheet and key-ratios pages, parsing their text layout
// into row/column grids, and binding grid rows to catalog fields.
package table

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// GRID MODEL - Parsed table structure
// =============================================================================

// Kind identifies which report table a grid came from.
type Kind string

const (
	KindBalanceSheet Kind = "BALANCE_SHEET"
	KindKeyRatios    Kind = "KEY_RATIOS"
	KindUnknown      Kind = "UNKNOWN"
)

// Cell is one numeric cell. Value is nil for blanks and dashes.
type Cell struct {
	Raw   string
	Value *float64
}

// Row is one labelled table row with its numeric columns.
type Row struct {
	Label string
	Cells []Cell
}

// Grid is a parsed table: period headers plus labelled numeric rows.
type Grid struct {
	Kind    Kind
	Page    int
	Headers []string // one label per data column, may be empty
	Rows    []Row
	Score   int // page-scoring confidence, higher is better
}

// ColumnCount returns the widest row width, or the header width when
// no row carries values.
func (g *Grid) ColumnCount() int {
	n := len(g.Headers)
	for _, r := range g.Rows {
		if len(r.Cells) > n {
			n = len(r.Cells)
		}
	}
	return n
}

// =============================================================================
// VALUE PARSING - Swedish financial number formats
// =============================================================================

var (
	spaceRun     = regexp.MustCompile(`[\s\x{00a0}\x{202f}]+`)
	footnoteTail = regexp.MustCompile(`(?i)\s*(,?\s*note\s*\d+|\(note\s*\d+\)|\d)$`)
	decimalComma = regexp.MustCompile(`^(\d+),(\d{1,2})$`)
)

// NormalizeLabel lowercases a row label, collapses whitespace variants
// (including non-breaking spaces) and strips footnote markers, so hint
// matching sees "equities and participations, listed" for
// "Equities and participations, Listed¹  Note 5".
func NormalizeLabel(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(strings.ToLower(s))
	for {
		trimmed := footnoteTail.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = strings.TrimSpace(trimmed)
	}
	return s
}

// ParseNumber parses a Swedish-formatted report figure.
// Handles:
//
//	"184 676"  → 184676 (space thousands, incl. non-breaking)
//	"-2 410"   → -2410
//	"(2 410)"  → -2410 (parentheses = negative)
//	"434.5"    → 434.5
//	"–" / "-"  → blank
func ParseNumber(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if isBlankMarker(trimmed) {
		return Cell{Raw: raw}
	}

	s := trimmed
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "−") {
		negative = true
		s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "−")
	}

	// Drop thousands separators. A single trailing ",d" is a Swedish
	// decimal comma, anything else comma-wise is a separator.
	s = spaceRun.ReplaceAllString(s, "")
	if m := decimalComma.FindStringSubmatch(s); m != nil {
		s = m[1] + "." + m[2]
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Cell{Raw: raw}
	}
	if negative {
		v = -v
	}
	return Cell{Raw: raw, Value: &v}
}

func isBlankMarker(s string) bool {
	switch s {
	case "", "-", "–", "—", "n/a", "N/A", ".":
		return true
	}
	return false
}

// =============================================================================
// LINE SPLITTING - Label and value columns from a text-layer line
// =============================================================================

var multiSpace = regexp.MustCompile(`[\t\x{00a0}\x{202f} ]{2,}`)

// SplitLine separates a text-layer line into its label and value
// cells. Lines laid out with column gaps (two or more spaces) split
// directly; single-spaced lines fall back to digit-group partitioning
// constrained by the expected column count. Ambiguous lines return no
// cells rather than guessing, since a mis-split concatenates adjacent
// period columns into one bogus figure.
func SplitLine(line string, expectCols int) (label string, cells []Cell) {
	line = strings.ReplaceAll(line, "\u00a0", " ")
	line = strings.ReplaceAll(line, "\u202f", " ")
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return "", nil
	}

	if parts := multiSpace.Split(line, -1); len(parts) >= 2 {
		parts = dropEmpty(parts)
		if len(parts) >= 2 && allNumeric(parts[1:]) {
			for _, p := range parts[1:] {
				cells = append(cells, ParseNumber(p))
			}
			return strings.TrimSpace(parts[0]), cells
		}
	}

	return splitSingleSpaced(line, expectCols)
}

func dropEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

func allNumeric(parts []string) bool {
	for _, p := range parts {
		c := ParseNumber(p)
		if c.Value == nil && !isBlankMarker(strings.TrimSpace(p)) {
			return false
		}
	}
	return true
}

var numToken = regexp.MustCompile(`^[\(\-−]?\d+(?:[.,]\d+)?\)?$`)

// hasNumericTail reports whether a line ends in the numeric token
// region splitSingleSpaced works on. Lines without one are label-only
// rows such as section headers.
func hasNumericTail(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return false
	}
	last := tokens[len(tokens)-1]
	return numToken.MatchString(last) || isBlankMarker(last)
}

// splitSingleSpaced handles lines where the text layer collapsed the
// column gaps to single spaces, e.g.
//
//	"Equities and participations, Listed 184 676 195 400"
//
// The trailing numeric tokens are digit groups: "184 676 195 400" is
// either two space-thousand numbers or four small ones. Continuation
// groups of a space-thousand number are exactly three digits, which
// combined with the expected column count usually yields exactly one
// valid reading. Anything else fails closed.
func splitSingleSpaced(line string, expectCols int) (string, []Cell) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "", nil
	}

	// Trailing run of numeric/blank tokens is the value region. Lines
	// without one are label-only rows (section headers) and matter for
	// section tracking.
	start := len(tokens)
	for start > 1 && (numToken.MatchString(tokens[start-1]) || isBlankMarker(tokens[start-1])) {
		start--
	}
	if start == len(tokens) {
		return strings.Join(tokens, " "), nil
	}

	label := strings.Join(tokens[:start], " ")
	groups := tokens[start:]

	partitions := partitionGroups(groups)
	if expectCols > 0 {
		var matching [][]Cell
		for _, p := range partitions {
			if len(p) == expectCols {
				matching = append(matching, p)
			}
		}
		// Period columns hold comparable figures, so among readings
		// with the right column count the one with the most even digit
		// widths wins: "184 676 195 400" reads as 184676 | 195400, not
		// 184 | 676195400. A tie stays ambiguous and fails closed.
		matching = mostBalanced(matching)
		partitions = matching
	}
	if len(partitions) != 1 {
		return label, nil
	}
	return label, partitions[0]
}

func mostBalanced(partitions [][]Cell) [][]Cell {
	if len(partitions) <= 1 {
		return partitions
	}
	best := -1
	var winners [][]Cell
	for _, p := range partitions {
		s := digitSpread(p)
		switch {
		case best < 0 || s < best:
			best = s
			winners = [][]Cell{p}
		case s == best:
			winners = append(winners, p)
		}
	}
	return winners
}

func digitSpread(cells []Cell) int {
	min, max := -1, -1
	for _, c := range cells {
		n := 0
		for _, r := range c.Raw {
			if r >= '0' && r <= '9' {
				n++
			}
		}
		if min < 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if min < 0 {
		return 0
	}
	return max - min
}

// partitionGroups enumerates every way of joining digit groups into
// numbers where continuation groups are exactly three digits and carry
// no sign, decimal point or parentheses.
func partitionGroups(groups []string) [][]Cell {
	var out [][]Cell
	var walk func(i int, acc []string)
	walk = func(i int, acc []string) {
		if i == len(groups) {
			cells := make([]Cell, len(acc))
			for j, s := range acc {
				cells[j] = ParseNumber(s)
			}
			out = append(out, cells)
			return
		}
		g := groups[i]

		// Start a new number at this group.
		walk(i+1, append(append([]string(nil), acc...), g))

		// Or continue the previous number, when legal.
		if len(acc) > 0 && isContinuation(g) && canExtend(acc[len(acc)-1]) {
			ext := append([]string(nil), acc...)
			ext[len(ext)-1] = ext[len(ext)-1] + " " + g
			walk(i+1, ext)
		}
	}
	walk(0, nil)
	return out
}

func isContinuation(g string) bool {
	if len(g) != 3 {
		return false
	}
	for _, r := range g {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func canExtend(head string) bool {
	return !strings.ContainsAny(head, ".,)")
}
