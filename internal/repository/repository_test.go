package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preorderimport/internal/db"
	"preorderimport/internal/model"
)

func openTestDB(t *testing.T) (*OutcomeRepository, *RunRepository) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := db.New(url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(ctx, conn))

	pool, err := db.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &OutcomeRepository{DB: conn}, &RunRepository{DB: pool}
}

func TestJournalRoundTrip(t *testing.T) {
	outcomes, runs := openTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	require.NoError(t, runs.Start(ctx, runID, "test.csv"))

	ok := model.Outcome{Line: 2, Name: "Lampada X", SKU: "LX-1", Status: model.StatusCreated, Stage: model.StageUpserted, ProductID: "p1"}
	bad := model.Outcome{Line: 3, Name: "Free", SKU: "F-1", Status: model.StatusFailed, Stage: model.StagePriced, Err: errors.New("invalid base price 0")}
	require.NoError(t, outcomes.Save(ctx, runID, ok))
	require.NoError(t, outcomes.Save(ctx, runID, bad))

	ok.Warnings = []string{"scrape failed"}
	require.NoError(t, outcomes.Save(ctx, runID, ok))

	summary := model.Summarize([]model.Outcome{ok, bad})
	require.NoError(t, runs.Finish(ctx, runID, summary))

	list, err := outcomes.List(ctx, runID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"scrape failed"}, list[0].Warnings)
	assert.Equal(t, model.StatusCreated, list[0].Status)
	assert.Equal(t, "invalid base price 0", list[1].Error)
	assert.Equal(t, model.StagePriced, list[1].Stage)

	run, err := runs.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, summary, run.Summary)
	assert.Equal(t, "test.csv", run.Source)
}
