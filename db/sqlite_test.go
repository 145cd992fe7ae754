package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "artifacts", "experiments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndQueryTrainingRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	first := TrainingRun{
		Experiment: "EXP-06",
		ModelName:  "single tree",
		ModelType:  "regression_tree",
		ModelPath:  "app/artifacts/tree.json",
		MSE:        0.52,
		R2:         0.2,
		TrainRows:  1279,
		TestRows:   320,
		TrainedAt:  base,
	}
	second := first
	second.Experiment = "EXP-07"
	second.ModelName = "XGBoost fully tuned"
	second.ModelType = "gradient_boosting"
	second.MSE = 0.31
	second.R2 = 0.52
	second.TrainedAt = base.Add(time.Hour)

	id1, err := store.SaveTrainingRun(ctx, first)
	require.NoError(t, err)
	id2, err := store.SaveTrainingRun(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := store.QueryTrainingRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "EXP-07", runs[0].Experiment)
	assert.Equal(t, "EXP-06", runs[1].Experiment)
	assert.Equal(t, 1279, runs[1].TrainRows)
	assert.True(t, runs[0].TrainedAt.Equal(second.TrainedAt))

	limited, err := store.QueryTrainingRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	best, err := store.BestTrainingRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, id2, best.ID)
	assert.InDelta(t, 0.31, best.MSE, 1e-12)
}

func TestBestTrainingRunEmpty(t *testing.T) {
	store := openTestStore(t)

	best, err := store.BestTrainingRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, best)

	runs, err := store.QueryTrainingRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSaveTrainingRunDefaultsTimestamp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.SaveTrainingRun(ctx, TrainingRun{Experiment: "EXP-01", ModelName: "m", ModelType: "t", ModelPath: "p"})
	require.NoError(t, err)

	runs, err := store.QueryTrainingRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.WithinDuration(t, time.Now(), runs[0].TrainedAt, time.Minute)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
