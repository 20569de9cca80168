package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"preorderimport/internal/db"
	"preorderimport/internal/pipeline"
	"preorderimport/internal/repository"
)

// journal records runs and per-row outcomes in Postgres. A zero journal
// (no DATABASE_URL or connection failure) does nothing.
type journal struct {
	conn     *sql.DB
	pool     *pgxpool.Pool
	runs     *repository.RunRepository
	outcomes *repository.OutcomeRepository
}

func openJournal(ctx context.Context, url string) *journal {
	if url == "" {
		return &journal{}
	}

	conn, err := db.New(url)
	if err != nil {
		slog.Warn("journal disabled: postgres unreachable", "error", err)
		return &journal{}
	}
	if err := db.Migrate(ctx, conn); err != nil {
		slog.Warn("journal disabled: migration failed", "error", err)
		conn.Close()
		return &journal{}
	}
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		slog.Warn("journal disabled: pgx pool failed", "error", err)
		conn.Close()
		return &journal{}
	}

	return &journal{
		conn:     conn,
		pool:     pool,
		runs:     &repository.RunRepository{DB: pool},
		outcomes: &repository.OutcomeRepository{DB: conn},
	}
}

func (j *journal) Start(ctx context.Context, runID uuid.UUID, source string) {
	if j.runs == nil {
		return
	}
	if err := j.runs.Start(ctx, runID, source); err != nil {
		slog.Warn("journal: run not recorded", "run_id", runID.String(), "error", err)
		j.runs, j.outcomes = nil, nil
	}
}

func (j *journal) Finish(ctx context.Context, runID uuid.UUID, report pipeline.Report) {
	if j.runs == nil {
		return
	}
	for _, o := range report.Outcomes {
		if err := j.outcomes.Save(ctx, runID, o); err != nil {
			slog.Warn("journal: outcome not recorded", "run_id", runID.String(), "line", o.Line, "error", err)
		}
	}
	if err := j.runs.Finish(ctx, runID, report.Summary); err != nil {
		slog.Warn("journal: run summary not recorded", "run_id", runID.String(), "error", err)
	}
}

func (j *journal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
	if j.conn != nil {
		j.conn.Close()
	}
}
