package table

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ap2_extraction/pkg/core/document"
	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/schema"
)

// =============================================================================
// PAGE SCORING - Locate the balance-sheet and key-ratios pages
// =============================================================================

// BalanceSheetThreshold is the minimum page score for a page to be
// treated as the balance sheet. Narrative pages that merely mention a
// few line items score well below it.
const BalanceSheetThreshold = 30

var balanceSheetSignals = []struct {
	phrase string
	weight int
}{
	{"total assets", 10},
	{"total fund capital", 10},
	{"total liabilities", 8},
	{"balance sheet", 8},
	{"equities and participations", 3},
	{"bonds and other", 3},
	{"derivative instruments", 3},
	{"cash and bank", 3},
	{"prepaid expenses", 3},
	{"other liabilities", 3},
	{"deferred income", 3},
	{"net payments to the national pension system", 3},
}

// ScoreBalanceSheetPage rates how strongly a page looks like the
// balance sheet. Weighted phrase hits; the totals lines dominate.
func ScoreBalanceSheetPage(text string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, s := range balanceSheetSignals {
		if strings.Contains(lower, s.phrase) {
			score += s.weight
		}
	}
	return score
}

// IsKeyRatiosPage reports whether a page carries the key-ratios table
// (the SEK billion figures live there, not on the balance sheet).
func IsKeyRatiosPage(text string) bool {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "key ratios") && !strings.Contains(lower, "key figures") {
		return false
	}
	return strings.Contains(lower, "fund capital") ||
		strings.Contains(lower, "net outflow") ||
		strings.Contains(lower, "net result")
}

// =============================================================================
// STRUCTURAL EXTRACTOR - Text-layer grids bound to catalog fields
// =============================================================================

// Extractor is the structural tier: it locates report tables in the
// text layer, parses them into grids and binds rows to catalog fields.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor creates the structural tier.
func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{log: log}
}

// Tier identifies this strategy in reconciliation provenance.
func (e *Extractor) Tier() reconcile.Tier { return reconcile.TierStructural }

// Extract locates the report tables and returns one candidate per
// bindable field. Documents without a recognizable balance-sheet page
// yield no candidates; that is a normal cascade outcome, not an error.
func (e *Extractor) Extract(ctx context.Context, doc *document.Document, fields []schema.FieldSpec) ([]reconcile.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grids := e.FindGrids(doc)
	if len(grids) == 0 {
		e.log.Debug("no report tables located", zap.String("document", doc.Name))
		return nil, nil
	}

	var out []reconcile.Candidate
	for _, g := range grids {
		col, err := SelectCurrentColumn(g.Headers)
		if err != nil {
			e.log.Warn("skipping table with undecidable period columns",
				zap.String("document", doc.Name),
				zap.Int("page", g.Page))
			continue
		}
		out = append(out, BindFields(g, col, fields)...)
	}

	e.log.Info("structural tier finished",
		zap.String("document", doc.Name),
		zap.Int("tables", len(grids)),
		zap.Int("candidates", len(out)))
	return out, nil
}

// FindGrids scans the document for the balance-sheet page (best score
// at or above threshold) and the key-ratios page, and parses each into
// a grid. HTML documents go through the goquery backend instead.
func (e *Extractor) FindGrids(doc *document.Document) []*Grid {
	if doc.Kind == document.KindHTML {
		grids, err := ParseHTMLGrids(doc.Raw())
		if err != nil {
			e.log.Warn("html table parse failed", zap.String("document", doc.Name), zap.Error(err))
			return nil
		}
		return grids
	}

	pages := doc.Pages()

	bestPage, bestScore := -1, 0
	krPage := -1
	for i, page := range pages {
		if s := ScoreBalanceSheetPage(page); s >= BalanceSheetThreshold && s > bestScore {
			bestPage, bestScore = i, s
		}
		if krPage < 0 && IsKeyRatiosPage(page) {
			krPage = i
		}
	}

	var grids []*Grid
	if bestPage >= 0 {
		g := ParseTextGrid(pages[bestPage], bestPage+1, KindBalanceSheet)
		g.Score = bestScore
		grids = append(grids, g)
		e.log.Debug("balance sheet located",
			zap.String("document", doc.Name),
			zap.Int("page", bestPage+1),
			zap.Int("score", bestScore))
	}
	if krPage >= 0 && krPage != bestPage {
		grids = append(grids, ParseTextGrid(pages[krPage], krPage+1, KindKeyRatios))
	}
	return grids
}

// ParseTextGrid parses one text-layer page into a grid. The first line
// carrying period dates but no figures becomes the header row; value
// rows are split label-from-columns, with single-spaced lines resolved
// against the header column count.
func ParseTextGrid(page string, pageNo int, kind Kind) *Grid {
	g := &Grid{Kind: kind, Page: pageNo}
	lines := strings.Split(page, "\n")

	for _, line := range lines {
		if len(g.Headers) > 0 {
			break
		}
		if h := headerDates(line); len(h) >= 1 && !lineHasFigures(line) {
			g.Headers = h
		}
	}

	expect := len(g.Headers)
	type pending struct {
		line string
		row  int
	}
	var retry []pending

	for _, line := range lines {
		label, cells := SplitLine(line, expect)
		if label == "" {
			continue
		}
		// Label-only rows (section headers) stay in place; only lines
		// with an unsplit numeric tail are candidates for a second pass.
		if cells == nil && expect == 0 && hasNumericTail(line) {
			retry = append(retry, pending{line: line, row: len(g.Rows)})
		}
		g.Rows = append(g.Rows, Row{Label: label, Cells: cells})
	}

	// Without headers the expected width comes from the rows that did
	// split cleanly; single-spaced stragglers get re-split in place so
	// row order and section tracking survive.
	if expect == 0 && len(retry) > 0 {
		if w := modalWidth(g.Rows); w > 0 {
			for _, p := range retry {
				if label, cells := SplitLine(p.line, w); label != "" && cells != nil {
					g.Rows[p.row] = Row{Label: label, Cells: cells}
				}
			}
		}
	}

	return g
}

func headerDates(line string) []string {
	return periodDatePattern.FindAllString(line, -1)
}

func lineHasFigures(line string) bool {
	_, cells := SplitLine(line, 0)
	for _, c := range cells {
		if c.Value != nil && (*c.Value >= 10000 || *c.Value <= -10000) {
			return true
		}
	}
	return false
}

func modalWidth(rows []Row) int {
	counts := map[int]int{}
	for _, r := range rows {
		if len(r.Cells) > 0 {
			counts[len(r.Cells)]++
		}
	}
	best, bestN := 0, 0
	for w, n := range counts {
		if n > bestN || (n == bestN && w > best) {
			best, bestN = w, n
		}
	}
	return best
}
