package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winequality/db"
	"winequality/ml"
)

type recorderFunc func(ctx context.Context, run db.TrainingRun) (int64, error)

func (f recorderFunc) SaveTrainingRun(ctx context.Context, run db.TrainingRun) (int64, error) {
	return f(ctx, run)
}

func writeDataset(t *testing.T, dir string, rows int) string {
	t.Helper()
	rnd := rand.New(rand.NewSource(11))
	var b strings.Builder
	b.WriteString(`"fixed acidity";"volatile acidity";"citric acid";"residual sugar";"chlorides";"free sulfur dioxide";"total sulfur dioxide";"density";"pH";"sulphates";"alcohol";"quality"` + "\n")
	for i := 0; i < rows; i++ {
		volatile := 0.2 + rnd.Float64()
		alcohol := 8 + 6*rnd.Float64()
		quality := 3 + (alcohol-8)/2 - volatile
		fmt.Fprintf(&b, "%.2f;%.3f;%.2f;%.1f;%.3f;%d;%d;%.4f;%.2f;%.2f;%.2f;%.0f\n",
			6+4*rnd.Float64(), volatile, rnd.Float64(), 1+5*rnd.Float64(), 0.05+0.1*rnd.Float64(),
			5+rnd.Intn(40), 20+rnd.Intn(100), 0.99+0.01*rnd.Float64(), 3+0.6*rnd.Float64(),
			0.4+0.6*rnd.Float64(), alcohol, quality)
	}
	path := filepath.Join(dir, "winequality-red.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	boosting := ml.DefaultGradientBoostingConfig()
	boosting.NEstimators = 40
	boosting.LearningRate = 0.1
	boosting.MaxDepth = 3
	return Config{
		DatasetPath:  writeDataset(t, dir, 200),
		ModelType:    ml.ModelTypeGradientBoosting,
		ModelPath:    filepath.Join(dir, "artifacts", "model.json"),
		MetricsPath:  filepath.Join(dir, "artifacts", "metrics.json"),
		TestRatio:    0.2,
		Seed:         42,
		MaxTreeDepth: 4,
		Boosting:     boosting,
		Experiment:   "EXP-07",
		ModelName:    "XGBoost fully tuned",
	}
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)

	var recorded []db.TrainingRun
	recorder := recorderFunc(func(_ context.Context, run db.TrainingRun) (int64, error) {
		recorded = append(recorded, run)
		return 7, nil
	})

	result, err := Run(context.Background(), cfg, recorder, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.RunID)
	assert.Equal(t, 160, result.TrainRows)
	assert.Equal(t, 40, result.TestRows)
	assert.Greater(t, result.R2Score, 0.5)

	payload, err := os.ReadFile(cfg.MetricsPath)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(payload, &report))
	assert.Equal(t, "EXP-07", report["experiment"])
	assert.Equal(t, "XGBoost fully tuned", report["model"])
	assert.Contains(t, report, "mse")
	assert.Contains(t, report, "r2_score")
	assert.Len(t, report, 4)
	assert.Contains(t, string(payload), "\n    \"experiment\"")

	model, err := ml.LoadModel("", cfg.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, ml.ModelTypeGradientBoosting, model.Type())
	_, err = model.Predict(make([]float64, ml.NumFeatures))
	require.NoError(t, err)

	require.Len(t, recorded, 1)
	assert.Equal(t, "EXP-07", recorded[0].Experiment)
	assert.Equal(t, ml.ModelTypeGradientBoosting, recorded[0].ModelType)
	assert.InDelta(t, result.MSE, recorded[0].MSE, 1e-12)
}

func TestRunWithStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModelType = ml.ModelTypeRegressionTree
	cfg.ModelName = "single tree"

	store, err := db.Open(filepath.Join(t.TempDir(), "experiments.db"))
	require.NoError(t, err)
	defer store.Close()

	first, err := Run(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, store, nil)
	require.NoError(t, err)
	assert.Equal(t, first.MSE, second.MSE, "training must be deterministic")

	runs, err := store.QueryTrainingRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunFailures(t *testing.T) {
	t.Run("missing dataset", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DatasetPath = filepath.Join(t.TempDir(), "missing.csv")
		_, err := Run(context.Background(), cfg, nil, nil)
		assert.Error(t, err)
		assert.NoFileExists(t, cfg.ModelPath)
	})

	t.Run("unknown model", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ModelType = "svm"
		_, err := Run(context.Background(), cfg, nil, nil)
		assert.ErrorIs(t, err, ml.ErrUnknownModel)
	})

	t.Run("recorder error", func(t *testing.T) {
		cfg := testConfig(t)
		recorder := recorderFunc(func(context.Context, db.TrainingRun) (int64, error) {
			return 0, errors.New("disk full")
		})
		_, err := Run(context.Background(), cfg, recorder, nil)
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, cfg, nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("missing paths", func(t *testing.T) {
		_, err := Run(context.Background(), Config{}, nil, nil)
		assert.Error(t, err)
	})
}
