package table

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"ap2_extraction/pkg/core/document"
	"ap2_extraction/pkg/core/schema"
)

const balanceSheetPage = `Balance sheet
SEK million   30 Jun 2025   31 Dec 2024
Assets
Equities and participations, Listed   100 872   98 000
Equities and participations, Unlisted   40 612   41 000
Bonds and other fixed-income securities   33 997   35 000
Derivative instruments   1 135   1 000
Cash and bank balances   4 260   4 100
Other assets   1 501   1 400
Prepaid expenses and accrued income   2 299   2 200
Total assets   184 676   195 400
Liabilities
Derivative instruments   2 589   2 400
Other liabilities   20 747   19 000
Deferred income and accrued expenses   119   110
Total liabilities   23 455   21 510
Fund capital
Fund capital carried forward   166 973   160 000
Net payments to the national pension system   -2 410   -4 285
Net result for the period   -3 342   18 258
Total fund capital   161 221   173 973
Fund capital and liabilities
Total fund capital and liabilities   184 676   195 400
`

const keyRatiosPage = `Key ratios
  30 Jun 2025   31 Dec 2024
Fund capital carried forward, SEK billion   434.5   419.0
Net outflows to the national pension system   -2.4   -4.3
Net result for the period, SEK billion   -3.3   18.3
`

func TestScoreBalanceSheetPage(t *testing.T) {
	if s := ScoreBalanceSheetPage(balanceSheetPage); s < BalanceSheetThreshold {
		t.Errorf("balance sheet page scored %d, below threshold %d", s, BalanceSheetThreshold)
	}
	narrative := "During the period the return on listed equities was strong and total assets grew."
	if s := ScoreBalanceSheetPage(narrative); s >= BalanceSheetThreshold {
		t.Errorf("narrative page scored %d, at or above threshold", s)
	}
}

func TestIsKeyRatiosPage(t *testing.T) {
	if !IsKeyRatiosPage(keyRatiosPage) {
		t.Error("key ratios page not recognized")
	}
	if IsKeyRatiosPage(balanceSheetPage) {
		t.Error("balance sheet misread as key ratios page")
	}
}

func TestParseTextGridHeadersAndRows(t *testing.T) {
	g := ParseTextGrid(balanceSheetPage, 12, KindBalanceSheet)
	if len(g.Headers) != 2 {
		t.Fatalf("headers = %v, want 2 period dates", g.Headers)
	}
	if g.Headers[0] != "30 Jun 2025" || g.Headers[1] != "31 Dec 2024" {
		t.Errorf("headers = %v", g.Headers)
	}

	var total *Row
	for i := range g.Rows {
		if NormalizeLabel(g.Rows[i].Label) == "total assets" {
			total = &g.Rows[i]
		}
	}
	if total == nil {
		t.Fatal("total assets row not parsed")
	}
	if len(total.Cells) != 2 || *total.Cells[0].Value != 184676 {
		t.Errorf("total assets cells = %+v", total.Cells)
	}
}

func TestParseTextGridWithoutHeadersKeepsSectionRows(t *testing.T) {
	// No parseable period header: the grid is rebuilt from row widths.
	// Section headers must stay in place so binding can still tell the
	// two derivative rows apart, and single-spaced stragglers resolve
	// at their original position.
	page := "Balance sheet\n" +
		"Assets\n" +
		"Cash and bank balances   4 260   5 093\n" +
		"Total assets 184 676 195 400\n" +
		"Liabilities\n" +
		"Derivative instruments   2 589   2 450\n"

	g := ParseTextGrid(page, 1, KindBalanceSheet)
	if len(g.Headers) != 0 {
		t.Fatalf("headers = %v, want none", g.Headers)
	}

	want := []string{"balance sheet", "assets", "cash and bank balances", "total assets", "liabilities", "derivative instruments"}
	if len(g.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(g.Rows), len(want))
	}
	for i, w := range want {
		if got := NormalizeLabel(g.Rows[i].Label); got != w {
			t.Errorf("row %d label = %q, want %q", i, got, w)
		}
	}

	if g.Rows[1].Cells != nil || g.Rows[4].Cells != nil {
		t.Error("section header rows gained cells")
	}
	total := g.Rows[3]
	if len(total.Cells) != 2 || total.Cells[0].Value == nil || *total.Cells[0].Value != 184676 {
		t.Errorf("total assets cells = %+v, want [184676 195400]", total.Cells)
	}
}

func TestExtractorEndToEnd(t *testing.T) {
	text := keyRatiosPage + "\f" + balanceSheetPage
	doc, err := document.New("halvarsrapport-2025.txt", 2025, []byte(text), "")
	if err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(zap.NewNop())
	cands, err := e.Extract(context.Background(), doc, schema.Default().ValueFields())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got := byField(cands)
	if len(got) != 20 {
		t.Errorf("bound %d fields, want all 20", len(got))
	}
	if got["TOTALASSETS"] != 184676 {
		t.Errorf("TOTALASSETS = %v, want current-period 184676", got["TOTALASSETS"])
	}
	if got["FUNDCAPITALCARRIEDFORWARDLEVEL"] != 434.5 {
		t.Errorf("key ratio = %v, want 434.5", got["FUNDCAPITALCARRIEDFORWARDLEVEL"])
	}
	if got["DERIVATIVEINSTRUMENTS"] != 1135 || got["DERIVATIVEINSTRUMENTSLIABILITIES"] != 2589 {
		t.Errorf("derivatives = %v / %v", got["DERIVATIVEINSTRUMENTS"], got["DERIVATIVEINSTRUMENTSLIABILITIES"])
	}
}

func TestExtractorNoTablesIsNotAnError(t *testing.T) {
	doc, err := document.New("note.txt", 2025, []byte("An interim commentary without any statement tables."), "")
	if err != nil {
		t.Fatal(err)
	}
	e := NewExtractor(zap.NewNop())
	cands, err := e.Extract(context.Background(), doc, schema.Default().ValueFields())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("candidates = %d, want 0", len(cands))
	}
}

func TestParseHTMLGrids(t *testing.T) {
	html := `<html><body>
<h2>Balance sheet</h2>
<table>
<tr><td>SEK million</td><td>30 Jun 2025</td><td>31 Dec 2024</td></tr>
<tr><td>Assets</td><td></td><td></td></tr>
<tr><td>Total assets</td><td>184 676</td><td>195 400</td></tr>
<tr><td>Liabilities</td><td></td><td></td></tr>
<tr><td>Total liabilities</td><td>23 455</td><td>21 510</td></tr>
<tr><td>Fund capital</td><td></td><td></td></tr>
<tr><td>Total fund capital</td><td>161 221</td><td>173 973</td></tr>
<tr><td>Derivative instruments</td><td>1 135</td><td>1 000</td></tr>
<tr><td>Cash and bank balances</td><td>4 260</td><td>4 100</td></tr>
<tr><td>Prepaid expenses and accrued income</td><td>2 299</td><td>2 200</td></tr>
<tr><td>Deferred income and accrued expenses</td><td>119</td><td>110</td></tr>
<tr><td>Other liabilities</td><td>20 747</td><td>19 000</td></tr>
<tr><td>Equities and participations, Listed</td><td>100 872</td><td>98 000</td></tr>
<tr><td>Bonds and other fixed-income securities</td><td>33 997</td><td>35 000</td></tr>
</table>
</body></html>`

	grids, err := ParseHTMLGrids([]byte(html))
	if err != nil {
		t.Fatalf("ParseHTMLGrids: %v", err)
	}
	if len(grids) != 1 {
		t.Fatalf("grids = %d, want 1", len(grids))
	}
	g := grids[0]
	if g.Kind != KindBalanceSheet {
		t.Errorf("kind = %q", g.Kind)
	}
	if len(g.Headers) != 2 || !strings.Contains(g.Headers[0], "2025") {
		t.Errorf("headers = %v", g.Headers)
	}

	found := false
	for _, r := range g.Rows {
		if NormalizeLabel(r.Label) == "total assets" {
			found = true
			if len(r.Cells) != 2 || r.Cells[0].Value == nil || *r.Cells[0].Value != 184676 {
				t.Errorf("total assets cells = %+v", r.Cells)
			}
		}
	}
	if !found {
		t.Error("total assets row missing")
	}
}
