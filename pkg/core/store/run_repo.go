package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/validate"
)

// RunRepo stores one extraction record plus its validation outcome per
// (year, report kind), newest run winning.
type RunRepo struct{}

// NewRunRepo creates a repository instance.
func NewRunRepo() *RunRepo {
	return &RunRepo{}
}

// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS extraction_runs (
//	  report_year INT NOT NULL,
//	  report_kind TEXT NOT NULL,
//	  run_id TEXT NOT NULL,
//	  run_json JSONB NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL,
//	  PRIMARY KEY (report_year, report_kind)
//	);

// Save upserts a run keyed by (year, kind).
func (r *RunRepo) Save(ctx context.Context, kind string, rec *reconcile.Record, outcome *validate.Outcome) error {
	pool := Pool()
	if pool == nil {
		return fmt.Errorf("store: not connected")
	}

	data := struct {
		Record     *reconcile.Record `json:"record"`
		Validation *validate.Outcome `json:"validation"`
	}{
		Record:     rec,
		Validation: outcome,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("store: marshal run: %w", err)
	}

	query := `
		INSERT INTO extraction_runs (report_year, report_kind, run_id, run_json, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (report_year, report_kind)
		DO UPDATE SET
			run_id = EXCLUDED.run_id,
			run_json = EXCLUDED.run_json,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = pool.Exec(ctx, query, rec.Year, kind, rec.RunID, jsonData, time.Now())
	if err != nil {
		return fmt.Errorf("store: save run: %w", err)
	}
	return nil
}

// Load retrieves the stored run for a year and kind.
func (r *RunRepo) Load(ctx context.Context, year int, kind string) (*reconcile.Record, *validate.Outcome, error) {
	pool := Pool()
	if pool == nil {
		return nil, nil, fmt.Errorf("store: not connected")
	}

	query := `SELECT run_json FROM extraction_runs WHERE report_year = $1 AND report_kind = $2`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, year, kind).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, fmt.Errorf("store: no run for %d/%s", year, kind)
		}
		return nil, nil, fmt.Errorf("store: load run: %w", err)
	}

	var data struct {
		Record     *reconcile.Record `json:"record"`
		Validation *validate.Outcome `json:"validation"`
	}
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, nil, fmt.Errorf("store: unmarshal run: %w", err)
	}
	return data.Record, data.Validation, nil
}
