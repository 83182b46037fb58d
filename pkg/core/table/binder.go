package table

import (
	"sort"
	"strings"

	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/schema"
)

// =============================================================================
// FIELD BINDING - Grid rows to catalog fields with section tracking
// =============================================================================

// Section headers appear as label-only rows. Matching is exact on the
// normalized label: "Derivative instruments" occurs under both Assets
// and Liabilities and only the crossed header tells them apart.
var sectionHeaders = map[string]schema.Section{
	"assets":                       schema.SectionAssets,
	"liabilities":                  schema.SectionLiabilities,
	"fund capital":                 schema.SectionFundCapital,
	"fund capital and liabilities": schema.SectionFundCapital,
}

// unitSuffixes are label tails that restate the field's scale and do
// not change its identity.
var unitSuffixes = []string{
	", sek billion", ", sek bn", ", sek million", ", sek m",
	" sek billion", " sek bn", " sek million", " sek m",
}

// BindFields maps grid rows to catalog fields and emits one candidate
// per cleanly bound field, reading the chosen period column. Hints are
// tried longest-first across the whole field set and each row binds at
// most once. A field matching rows with conflicting values yields no
// candidate.
func BindFields(g *Grid, column int, fields []schema.FieldSpec) []reconcile.Candidate {
	type hintRef struct {
		hint  string
		field *schema.FieldSpec
	}
	var hints []hintRef
	for i := range fields {
		f := &fields[i]
		if !gridServesField(g, f) {
			continue
		}
		for _, h := range f.Hints {
			hints = append(hints, hintRef{hint: h, field: f})
		}
	}
	sort.SliceStable(hints, func(i, j int) bool { return len(hints[i].hint) > len(hints[j].hint) })

	claimed := make([]bool, len(g.Rows))
	values := map[string][]float64{}
	evidence := map[string]string{}

	section := schema.SectionNone
	for ri := range g.Rows {
		row := &g.Rows[ri]
		label := NormalizeLabel(row.Label)

		if s, ok := sectionHeaders[label]; ok && len(row.Cells) == 0 {
			section = s
			continue
		}
		if len(row.Cells) == 0 || column >= len(row.Cells) {
			continue
		}
		cell := row.Cells[column]
		if cell.Value == nil {
			continue
		}

		for _, h := range hints {
			if claimed[ri] {
				break
			}
			if !labelMatchesHint(label, h.hint) {
				continue
			}
			if !sectionCompatible(g, h.field, section) {
				continue
			}
			if h.field.Range != nil && !h.field.Range.Contains(*cell.Value) {
				continue
			}
			claimed[ri] = true
			values[h.field.ID] = append(values[h.field.ID], *cell.Value)
			evidence[h.field.ID] = strings.TrimSpace(row.Label) + " = " + strings.TrimSpace(cell.Raw)
		}
	}

	var out []reconcile.Candidate
	for i := range fields {
		f := &fields[i]
		vs := values[f.ID]
		if len(vs) == 0 || conflicting(vs) {
			continue
		}
		out = append(out, reconcile.Candidate{
			FieldID:    f.ID,
			Value:      vs[0],
			Evidence:   evidence[f.ID],
			Confidence: 0.95,
		})
	}
	return out
}

// gridServesField keeps key-ratio fields on the key-ratios table and
// balance-sheet fields on the balance sheet.
func gridServesField(g *Grid, f *schema.FieldSpec) bool {
	if f.FromMetadata {
		return false
	}
	if f.Section == schema.SectionKeyRatios {
		return g.Kind == KindKeyRatios
	}
	return g.Kind == KindBalanceSheet
}

// labelMatchesHint accepts an exact normalized match, optionally with
// a unit restatement tail.
func labelMatchesHint(label, hint string) bool {
	if label == hint {
		return true
	}
	for _, suf := range unitSuffixes {
		if label == hint+suf {
			return true
		}
	}
	return false
}

// sectionCompatible enforces the section gate for balance-sheet
// fields. Key-ratio tables carry no section headers.
func sectionCompatible(g *Grid, f *schema.FieldSpec, current schema.Section) bool {
	if g.Kind == KindKeyRatios {
		return f.Section == schema.SectionKeyRatios
	}
	if current == schema.SectionNone {
		// Before any section header only unambiguous labels may bind;
		// the derivative rows are the known duplicates.
		return f.ID != "DERIVATIVEINSTRUMENTS" && f.ID != "DERIVATIVEINSTRUMENTSLIABILITIES"
	}
	return f.Section == current
}

func conflicting(vs []float64) bool {
	for _, v := range vs[1:] {
		if v != vs[0] {
			return true
		}
	}
	return false
}
