package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"preorderimport/internal/model"
)

type Run struct {
	ID      uuid.UUID
	Source  string
	Summary model.Summary
}

type RunRepository struct {
	DB *pgxpool.Pool
}

func (r *RunRepository) Start(ctx context.Context, id uuid.UUID, source string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO import_runs (id, source)
		VALUES ($1, $2)
	`, id, source)
	return err
}

func (r *RunRepository) Finish(ctx context.Context, id uuid.UUID, s model.Summary) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE import_runs
		SET finished_at = now(), total = $1, created = $2, updated = $3,
		    warned = $4, failed = $5, not_attempted = $6
		WHERE id = $7
	`, s.Total, s.Created, s.Updated, s.Warned, s.Failed, s.NotAttempted, id)
	return err
}

func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	run := Run{ID: id}
	err := r.DB.QueryRow(ctx, `
		SELECT source, total, created, updated, warned, failed, not_attempted
		FROM import_runs
		WHERE id = $1
	`, id).Scan(&run.Source, &run.Summary.Total, &run.Summary.Created, &run.Summary.Updated,
		&run.Summary.Warned, &run.Summary.Failed, &run.Summary.NotAttempted)
	return run, err
}
