// Package reconcile runs the tiered extraction cascade and merges
// candidates into a write-once record: the first tier to produce a
// value for a field owns it, later tiers only see what is still open.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ap2_extraction/pkg/core/document"
	"ap2_extraction/pkg/core/schema"
)

// Tier identifies which cascade stage produced a value.
type Tier string

const (
	TierStructural Tier = "structural"
	TierPattern    Tier = "pattern"
	TierSemantic   Tier = "semantic"
	TierMetadata   Tier = "metadata"
	TierNone       Tier = ""
)

// Candidate is one proposed field value from a strategy.
type Candidate struct {
	FieldID    string
	Value      float64
	Evidence   string
	Confidence float64
}

// Strategy is one extraction tier. Extract receives only the fields
// still unresolved and returns candidates for any subset of them.
// Returning no candidates is a normal outcome.
type Strategy interface {
	Tier() Tier
	Extract(ctx context.Context, doc *document.Document, fields []schema.FieldSpec) ([]Candidate, error)
}

// FieldResult is the resolved state of one catalog field. Value stays
// nil when every tier came up empty; Tier records provenance.
type FieldResult struct {
	FieldID    string   `json:"field_id"`
	Ordinal    int      `json:"ordinal"`
	Value      *float64 `json:"value"`
	Tier       Tier     `json:"tier"`
	Evidence   string   `json:"evidence,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// Record is the outcome of one document run: exactly one FieldResult
// per catalog entry, in ordinal order, plus run metadata.
type Record struct {
	RunID      string        `json:"run_id"`
	Document   string        `json:"document"`
	Year       int           `json:"year"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed"`
	Fields     []FieldResult `json:"fields"`
	TierCounts map[Tier]int  `json:"tier_counts"`
}

// Resolved counts fields that carry a value.
func (r *Record) Resolved() int {
	n := 0
	for _, f := range r.Fields {
		if f.Value != nil {
			n++
		}
	}
	return n
}

// Field returns the result for a field ID.
func (r *Record) Field(id string) (FieldResult, bool) {
	for _, f := range r.Fields {
		if f.FieldID == id {
			return f, true
		}
	}
	return FieldResult{}, false
}

// Value returns the resolved value for a field ID, if any.
func (r *Record) Value(id string) (float64, bool) {
	f, ok := r.Field(id)
	if !ok || f.Value == nil {
		return 0, false
	}
	return *f.Value, true
}

// ErrNoFieldsResolved marks a run where every tier failed on every
// field. The record is still returned so callers can log provenance.
var ErrNoFieldsResolved = errors.New("no fields resolved by any tier")

// Reconciler owns the ordered cascade for one catalog.
type Reconciler struct {
	catalog    *schema.Catalog
	strategies []Strategy
	log        *zap.Logger
}

// New builds a reconciler. Strategy order is cascade order: cheapest
// and most precise first.
func New(catalog *schema.Catalog, log *zap.Logger, strategies ...Strategy) *Reconciler {
	return &Reconciler{catalog: catalog, strategies: strategies, log: log}
}

// Run executes the cascade for one document. Strategy errors are
// logged and treated as zero candidates so one broken tier degrades
// the run instead of aborting it; context cancellation does abort.
func (r *Reconciler) Run(ctx context.Context, doc *document.Document) (*Record, error) {
	started := time.Now()
	rec := &Record{
		RunID:      uuid.NewString(),
		Document:   doc.Name,
		Year:       doc.Year,
		StartedAt:  started,
		TierCounts: map[Tier]int{},
	}

	index := map[string]int{}
	for i, f := range r.catalog.Fields() {
		rec.Fields = append(rec.Fields, FieldResult{FieldID: f.ID, Ordinal: f.Ordinal})
		index[f.ID] = i
		if f.FromMetadata {
			v := float64(doc.Year)
			rec.Fields[i].Value = &v
			rec.Fields[i].Tier = TierMetadata
			rec.Fields[i].Confidence = 1
			rec.TierCounts[TierMetadata]++
		}
	}

	for _, s := range r.strategies {
		open := r.unresolved(rec)
		if len(open) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return rec, err
		}

		candidates, err := s.Extract(ctx, doc, open)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rec, err
			}
			r.log.Warn("extraction tier failed, continuing cascade",
				zap.String("tier", string(s.Tier())),
				zap.String("document", doc.Name),
				zap.Error(err))
			continue
		}

		for _, c := range candidates {
			i, ok := index[c.FieldID]
			if !ok {
				r.log.Warn("candidate for unknown field dropped",
					zap.String("tier", string(s.Tier())),
					zap.String("field", c.FieldID))
				continue
			}
			fr := &rec.Fields[i]
			if fr.Value != nil {
				// Write-once: the earlier tier keeps the field even if
				// the same tier proposed it twice.
				continue
			}
			v := c.Value
			fr.Value = &v
			fr.Tier = s.Tier()
			fr.Evidence = c.Evidence
			fr.Confidence = c.Confidence
			rec.TierCounts[s.Tier()]++
		}

		r.log.Info("tier complete",
			zap.String("tier", string(s.Tier())),
			zap.String("document", doc.Name),
			zap.Int("resolved", rec.TierCounts[s.Tier()]),
			zap.Int("outstanding", len(r.unresolved(rec))))
	}

	rec.Elapsed = time.Since(started)

	if rec.Resolved() <= rec.TierCounts[TierMetadata] {
		return rec, ErrNoFieldsResolved
	}
	return rec, nil
}

// unresolved lists the catalog fields still without a value, in
// ordinal order, metadata fields excluded.
func (r *Reconciler) unresolved(rec *Record) []schema.FieldSpec {
	var open []schema.FieldSpec
	for i, f := range r.catalog.Fields() {
		if f.FromMetadata {
			continue
		}
		if rec.Fields[i].Value == nil {
			open = append(open, f)
		}
	}
	return open
}
