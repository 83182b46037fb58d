// Package pipeline drives extraction end to end: it runs the tier
// cascade over every input document concurrently, validates each
// record, and optionally persists run history.
package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ap2_extraction/pkg/core/document"
	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/validate"
)

// RunSaver persists one finished run. Implemented by store.RunRepo.
type RunSaver interface {
	Save(ctx context.Context, kind string, rec *reconcile.Record, outcome *validate.Outcome) error
}

// Outcome is the result for one document. Err is set when the cascade
// resolved nothing; Record is still present for provenance.
type Outcome struct {
	Record     *reconcile.Record
	Validation *validate.Outcome
	Err        error
}

// Orchestrator coordinates multi-document runs.
type Orchestrator struct {
	reconciler  *reconcile.Reconciler
	log         *zap.Logger
	concurrency int
	kind        string
	saver       RunSaver // nil disables persistence
}

// New builds an orchestrator. kind labels the report family in run
// history; saver may be nil.
func New(rec *reconcile.Reconciler, log *zap.Logger, concurrency int, kind string, saver RunSaver) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		reconciler:  rec,
		log:         log,
		concurrency: concurrency,
		kind:        kind,
		saver:       saver,
	}
}

// RunAll processes every document with bounded concurrency. Outcomes
// come back in input order. Per-document failures are recorded in the
// outcome, not returned; only context cancellation aborts the batch.
func (o *Orchestrator) RunAll(ctx context.Context, docs []*document.Document) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			out := o.runOne(gctx, doc)
			outcomes[i] = out
			if out.Err != nil && (errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded)) {
				return out.Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (o *Orchestrator) runOne(ctx context.Context, doc *document.Document) *Outcome {
	rec, err := o.reconciler.Run(ctx, doc)
	out := &Outcome{Record: rec, Err: err}
	if err != nil {
		if errors.Is(err, reconcile.ErrNoFieldsResolved) {
			o.log.Error("every tier failed for document",
				zap.String("document", doc.Name),
				zap.Int("year", doc.Year))
		}
		return out
	}

	out.Validation = validate.Run(rec, o.log)
	o.log.Info("document extracted",
		zap.String("document", doc.Name),
		zap.Int("year", doc.Year),
		zap.Int("resolved", rec.Resolved()),
		zap.Int("checks_failed", out.Validation.Failed()),
		zap.Duration("elapsed", rec.Elapsed))

	if o.saver != nil {
		if err := o.saver.Save(ctx, o.kind, rec, out.Validation); err != nil {
			// Persistence is bookkeeping; the extraction still counts.
			o.log.Warn("run history save failed",
				zap.String("document", doc.Name),
				zap.Error(err))
		}
	}
	return out
}

// Records returns the successfully extracted records from a batch.
func Records(outcomes []*Outcome) []*reconcile.Record {
	var recs []*reconcile.Record
	for _, o := range outcomes {
		if o != nil && o.Err == nil && o.Record != nil {
			recs = append(recs, o.Record)
		}
	}
	return recs
}
