package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"preorderimport/internal/model"
)

type OutcomeRecord struct {
	Line      int
	Name      string
	SKU       string
	Status    model.Status
	Stage     model.Stage
	ProductID string
	Error     string
	Warnings  []string
}

type OutcomeRepository struct {
	DB *sql.DB
}

// Save stores o under runID, replacing an earlier record for the same line.
func (r *OutcomeRepository) Save(ctx context.Context, runID uuid.UUID, o model.Outcome) error {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM import_outcomes WHERE run_id = $1 AND line = $2)", runID, o.Line,
	).Scan(&exists)
	if err != nil {
		return err
	}

	errText := ""
	if o.Err != nil {
		errText = strings.ToValidUTF8(o.Err.Error(), "")
	}
	warnings := o.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	if exists {
		_, err = r.DB.ExecContext(ctx, `
			UPDATE import_outcomes
			SET name = $1, sku = $2, status = $3, stage = $4, product_id = $5,
			    error = $6, warnings = $7, updated_at = now()
			WHERE run_id = $8 AND line = $9
		`, o.Name, o.SKU, string(o.Status), string(o.Stage), o.ProductID, errText, pq.Array(warnings), runID, o.Line)
	} else {
		_, err = r.DB.ExecContext(ctx, `
			INSERT INTO import_outcomes
			(run_id, line, name, sku, status, stage, product_id, error, warnings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, runID, o.Line, o.Name, o.SKU, string(o.Status), string(o.Stage), o.ProductID, errText, pq.Array(warnings))
	}

	return err
}

func (r *OutcomeRepository) List(ctx context.Context, runID uuid.UUID) ([]OutcomeRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT line, name, sku, status, stage, product_id, error, warnings
		FROM import_outcomes
		WHERE run_id = $1
		ORDER BY line
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []OutcomeRecord
	for rows.Next() {
		var rec OutcomeRecord
		var status, stage string
		if err := rows.Scan(&rec.Line, &rec.Name, &rec.SKU, &status, &stage, &rec.ProductID, &rec.Error, pq.Array(&rec.Warnings)); err != nil {
			return nil, err
		}
		rec.Status, rec.Stage = model.Status(status), model.Stage(stage)
		list = append(list, rec)
	}
	return list, rows.Err()
}
