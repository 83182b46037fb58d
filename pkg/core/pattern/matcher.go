// Package pattern implements the middle extraction tier: word-bounded
// label-and-value scanning over the plain text layer. It catches
// figures the table parser missed, typically restated in prose or in
// tables whose layout collapsed.
package pattern

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ap2_extraction/pkg/core/document"
	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/schema"
	"ap2_extraction/pkg/core/table"
)

// Matcher is the pattern tier.
type Matcher struct {
	log *zap.Logger
}

// NewMatcher creates the pattern tier.
func NewMatcher(log *zap.Logger) *Matcher {
	return &Matcher{log: log}
}

// Tier identifies this strategy in reconciliation provenance.
func (m *Matcher) Tier() reconcile.Tier { return reconcile.TierPattern }

// valueAfterHint requires the figure to follow the hint with nothing
// but separators and an optional currency marker in between, so
// "total fund capital" does not pick the figure off the
// "Total fund capital and liabilities" line. The figure itself is
// either space-grouped thousands or one unbroken digit run, taken
// whole to the next word boundary.
const valueAfterHint = `[\s:]{1,5}(?:sek[\s:]{1,3})?(-?\(?(?:\d{1,3}(?:[ \x{00a0}\x{202f}]\d{3})+|\d+)(?:[.,]\d+)?\b\)?)`

// Extract scans every text line for hint-value pairs. Hints are tried
// longest-first across the whole field set and a line serves at most
// one field. A field seen with more than one distinct value in the
// document is ambiguous and produces nothing; ambiguity here is a
// signal to let the semantic tier decide.
func (m *Matcher) Extract(ctx context.Context, doc *document.Document, fields []schema.FieldSpec) ([]reconcile.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type hintRef struct {
		re    *regexp.Regexp
		hint  string
		field *schema.FieldSpec
	}
	var hints []hintRef
	for i := range fields {
		f := &fields[i]
		if f.FromMetadata {
			continue
		}
		for _, h := range f.Hints {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(h) + `\b` + valueAfterHint)
			if err != nil {
				m.log.Warn("unusable hint skipped", zap.String("field", f.ID), zap.String("hint", h))
				continue
			}
			hints = append(hints, hintRef{re: re, hint: h, field: f})
		}
	}
	sort.SliceStable(hints, func(i, j int) bool { return len(hints[i].hint) > len(hints[j].hint) })

	lines := strings.Split(doc.Text(), "\n")
	claimed := make([]bool, len(lines))
	values := map[string][]float64{}
	evidence := map[string]string{}

	for _, h := range hints {
		for li, line := range lines {
			if claimed[li] {
				continue
			}
			sub := h.re.FindStringSubmatch(line)
			if sub == nil {
				continue
			}
			cell := table.ParseNumber(sub[1])
			if cell.Value == nil {
				continue
			}
			if h.field.Range != nil && !h.field.Range.Contains(*cell.Value) {
				continue
			}
			claimed[li] = true
			values[h.field.ID] = append(values[h.field.ID], *cell.Value)
			if evidence[h.field.ID] == "" {
				evidence[h.field.ID] = strings.TrimSpace(sub[0])
			}
		}
	}

	var out []reconcile.Candidate
	for i := range fields {
		f := &fields[i]
		vs := values[f.ID]
		if len(vs) == 0 {
			continue
		}
		if distinct(vs) > 1 {
			m.log.Debug("conflicting pattern values dropped",
				zap.String("document", doc.Name),
				zap.String("field", f.ID),
				zap.Int("count", len(vs)))
			continue
		}
		out = append(out, reconcile.Candidate{
			FieldID:    f.ID,
			Value:      vs[0],
			Evidence:   evidence[f.ID],
			Confidence: 0.75,
		})
	}

	m.log.Info("pattern tier finished",
		zap.String("document", doc.Name),
		zap.Int("candidates", len(out)))
	return out, nil
}

func distinct(vs []float64) int {
	seen := map[float64]bool{}
	for _, v := range vs {
		seen[v] = true
	}
	return len(seen)
}
