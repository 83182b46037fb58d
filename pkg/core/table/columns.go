package table

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// COLUMN SELECTION - Deterministic current-period column choice
// =============================================================================

// ErrAmbiguousColumns is returned when period headers exist but do not
// single out one current-period column. Guessing here would silently
// report a prior period's figures, so selection fails closed.
var ErrAmbiguousColumns = errors.New("cannot determine current-period column")

var (
	periodDatePattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([a-zåä]+)\.?\s+(\d{4})\b`)
	bareYearPattern   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
	// Swedish month abbreviations that differ from English.
	"maj": time.May, "okt": time.October,
}

// ParsePeriodDate extracts the period-end date from a column header.
// Examples:
//
//	"30 Jun 2025"      → 2025-06-30
//	"31 december 2024" → 2024-12-31
//	"2024"             → 2024-01-01 (year-only headers rank by year)
func ParsePeriodDate(label string) (time.Time, bool) {
	if m := periodDatePattern.FindStringSubmatch(label); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		name := strings.ToLower(m[2])
		if len(name) > 3 {
			name = name[:3]
		}
		if month, ok := monthNames[name]; ok && day >= 1 && day <= 31 {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := bareYearPattern.FindString(label); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// SelectCurrentColumn picks the current-period data column from the
// parsed headers. The chronologically latest header date wins. Headers
// without any parseable date fall back to the leftmost column, which
// is where this document family prints the current period. Two headers
// tied on the latest date are ambiguous.
func SelectCurrentColumn(headers []string) (int, error) {
	type dated struct {
		index int
		date  time.Time
	}
	var dates []dated
	for i, h := range headers {
		if d, ok := ParsePeriodDate(h); ok {
			dates = append(dates, dated{index: i, date: d})
		}
	}

	if len(dates) == 0 {
		return 0, nil
	}

	latest := dates[0]
	tied := false
	for _, d := range dates[1:] {
		switch {
		case d.date.After(latest.date):
			latest = d
			tied = false
		case d.date.Equal(latest.date):
			tied = true
		}
	}
	if tied {
		return 0, ErrAmbiguousColumns
	}
	return latest.index, nil
}
