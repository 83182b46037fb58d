package table

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// HTML BACKEND - Report tables published as HTML
// =============================================================================

// ParseHTMLGrids extracts the balance-sheet and key-ratios tables from
// an HTML report. Table identity comes from the table's own text or a
// preceding heading; unidentified tables are skipped.
func ParseHTMLGrids(raw []byte) ([]*Grid, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("table: parse html: %w", err)
	}

	var grids []*Grid
	doc.Find("table").Each(func(i int, sel *goquery.Selection) {
		kind := classifyHTMLTable(sel)
		if kind == KindUnknown {
			return
		}
		if g := parseHTMLTable(sel, kind, i); g != nil {
			grids = append(grids, g)
		}
	})
	return grids, nil
}

func classifyHTMLTable(sel *goquery.Selection) Kind {
	context := strings.ToLower(sel.Text())
	if prev := sel.Prev(); prev.Length() > 0 {
		context += " " + strings.ToLower(prev.Text())
	}

	switch {
	case strings.Contains(context, "key ratios") || strings.Contains(context, "key figures"):
		return KindKeyRatios
	case ScoreBalanceSheetPage(context) >= BalanceSheetThreshold:
		return KindBalanceSheet
	default:
		return KindUnknown
	}
}

func parseHTMLTable(sel *goquery.Selection, kind Kind, position int) *Grid {
	rows := sel.Find("tr")
	if rows.Length() < 2 {
		return nil
	}

	g := &Grid{Kind: kind, Page: position + 1}

	rows.Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}

		// First row whose trailing cells carry period dates is the
		// header row.
		if len(g.Headers) == 0 && len(g.Rows) == 0 {
			dated := 0
			for _, c := range cells[1:] {
				if _, ok := ParsePeriodDate(c); ok {
					dated++
				}
			}
			if dated > 0 && dated == len(cells)-1 {
				g.Headers = cells[1:]
				return
			}
		}

		row0 := Row{Label: cells[0]}
		blank := true
		for _, c := range cells[1:] {
			cell := ParseNumber(c)
			if cell.Value != nil || strings.TrimSpace(c) != "" {
				blank = false
			}
			row0.Cells = append(row0.Cells, cell)
		}
		// Section headers arrive as single-cell rows or as rows whose
		// value cells are all empty.
		if blank {
			row0.Cells = nil
		}
		g.Rows = append(g.Rows, row0)
	})

	if len(g.Rows) == 0 {
		return nil
	}
	return g
}
