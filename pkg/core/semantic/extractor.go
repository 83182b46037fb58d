package semantic

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ap2_extraction/pkg/core/document"
	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/schema"
	"ap2_extraction/pkg/core/table"
)

// =============================================================================
// SEMANTIC EXTRACTOR - Model-backed fallback tier
// =============================================================================

const systemPrompt = `You are a precise financial data extraction engine for Swedish pension fund reports.
You respond with a single JSON object and nothing else: no prose, no markdown, no explanations.`

// maxPromptChars bounds the report excerpt sent to a model when the
// relevant pages cannot be located.
const maxPromptChars = 24000

// Extractor is the semantic tier: a fallback chain of model providers
// asked only for the fields the earlier tiers left unresolved.
type Extractor struct {
	providers   []Provider
	maxAttempts int
	log         *zap.Logger
}

// NewExtractor builds the semantic tier. Providers are tried in order;
// maxAttempts caps total calls per document (0 means one per provider).
func NewExtractor(log *zap.Logger, maxAttempts int, providers ...Provider) *Extractor {
	if maxAttempts <= 0 {
		maxAttempts = len(providers)
	}
	return &Extractor{providers: providers, maxAttempts: maxAttempts, log: log}
}

// Tier identifies this strategy in reconciliation provenance.
func (e *Extractor) Tier() reconcile.Tier { return reconcile.TierSemantic }

// Extract asks the provider chain for the outstanding fields. A rate
// limited or erroring provider fails over to the next one; a malformed
// response counts as an attempt and moves on. Exhausting the chain
// returns no candidates, leaving the fields unresolved, which is the
// cascade's normal degraded outcome rather than an error.
func (e *Extractor) Extract(ctx context.Context, doc *document.Document, fields []schema.FieldSpec) ([]reconcile.Candidate, error) {
	asked := askable(fields)
	if len(asked) == 0 || len(e.providers) == 0 {
		return nil, nil
	}

	prompt := BuildPrompt(doc, asked)
	attempts := 0

	for _, p := range e.providers {
		if attempts >= e.maxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++

		raw, err := p.GenerateResponse(ctx, prompt, systemPrompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if IsRateLimited(err) {
				e.log.Warn("provider rate limited, failing over",
					zap.String("provider", p.Name()),
					zap.String("document", doc.Name))
			} else {
				e.log.Warn("provider failed, failing over",
					zap.String("provider", p.Name()),
					zap.String("document", doc.Name),
					zap.Error(err))
			}
			continue
		}

		values, err := ParseFieldValues(raw)
		if err != nil {
			e.log.Warn("malformed model response discarded",
				zap.String("provider", p.Name()),
				zap.String("document", doc.Name),
				zap.Error(err))
			continue
		}

		out := e.candidates(asked, values, p.Name())
		e.log.Info("semantic tier finished",
			zap.String("provider", p.Name()),
			zap.String("document", doc.Name),
			zap.Int("candidates", len(out)))
		return out, nil
	}

	e.log.Warn("semantic provider chain exhausted",
		zap.String("document", doc.Name),
		zap.Int("attempts", attempts))
	return nil, nil
}

func (e *Extractor) candidates(fields []schema.FieldSpec, values map[string]float64, provider string) []reconcile.Candidate {
	var out []reconcile.Candidate
	for _, f := range fields {
		v, ok := values[f.ID]
		if !ok {
			continue
		}
		if f.Range != nil && !f.Range.Contains(v) {
			e.log.Debug("model value outside expected range dropped",
				zap.String("field", f.ID),
				zap.Float64("value", v))
			continue
		}
		out = append(out, reconcile.Candidate{
			FieldID:    f.ID,
			Value:      v,
			Evidence:   "model " + provider,
			Confidence: 0.6,
		})
	}
	return out
}

func askable(fields []schema.FieldSpec) []schema.FieldSpec {
	var out []schema.FieldSpec
	for _, f := range fields {
		if !f.FromMetadata {
			out = append(out, f)
		}
	}
	return out
}

// BuildPrompt assembles the extraction request: the outstanding field
// identifiers with descriptions and units, the current-period and sign
// rules, and the relevant report pages (full text, bounded, when the
// pages cannot be located).
func BuildPrompt(doc *document.Document, fields []schema.FieldSpec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Extract the following figures from the %d AP2 report below.\n\n", doc.Year)
	b.WriteString("Fields:\n")
	for _, f := range fields {
		unit := "SEK million, integer"
		if f.Unit == schema.UnitBillionSEK {
			unit = "SEK billion, decimal"
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", f.ID, f.Description, unit)
	}

	b.WriteString(`
Rules:
- Use the most recent period column when the report shows comparisons.
- Preserve negative signs; figures in parentheses are negative.
- Write numbers without spaces or thousand separators.
- Use null for any field the report does not state.
- Respond with one JSON object whose keys are exactly the field identifiers above.

Report text:
`)
	b.WriteString(relevantText(doc))
	return b.String()
}

// relevantText prefers the scored balance-sheet page plus the
// key-ratios page over shipping the whole report.
func relevantText(doc *document.Document) string {
	pages := doc.Pages()
	var picked []string
	for _, page := range pages {
		if table.ScoreBalanceSheetPage(page) >= table.BalanceSheetThreshold || table.IsKeyRatiosPage(page) {
			picked = append(picked, page)
		}
	}

	text := strings.Join(picked, "\n\f\n")
	if text == "" {
		text = doc.Text()
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	return text
}
