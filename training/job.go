// Package training fits a wine quality model on a labeled dataset, evaluates
// it on a held out split and persists the model, its metrics and the run
// history.
package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"winequality/db"
	"winequality/ml"
)

// Config describes one training run.
type Config struct {
	DatasetPath  string
	ModelType    string
	ModelPath    string
	MetricsPath  string
	TestRatio    float64
	Seed         int64
	MaxTreeDepth int
	Boosting     ml.GradientBoostingConfig
	Experiment   string
	ModelName    string
}

// Report is the metrics file written next to the model.
type Report struct {
	Experiment string  `json:"experiment"`
	Model      string  `json:"model"`
	MSE        float64 `json:"mse"`
	R2Score    float64 `json:"r2_score"`
}

// Result is what Run produced.
type Result struct {
	Report
	ModelPath string
	TrainRows int
	TestRows  int
	RunID     int64
}

// RunRecorder persists finished runs. A nil recorder skips the history.
type RunRecorder interface {
	SaveTrainingRun(ctx context.Context, run db.TrainingRun) (int64, error)
}

// Run executes the whole training job. Any failure aborts the run; artifacts
// already written are left in place.
func Run(ctx context.Context, cfg Config, recorder RunRecorder, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DatasetPath == "" {
		return nil, errors.New("dataset path is required")
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}

	model, err := ml.NewModel(cfg.ModelType, ml.ModelOptions{
		MaxTreeDepth: cfg.MaxTreeDepth,
		Boosting:     cfg.Boosting,
	})
	if err != nil {
		return nil, err
	}

	dataset, err := ml.LoadDataset(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded", zap.String("path", cfg.DatasetPath), zap.Int("rows", dataset.Len()))

	preprocessor := &ml.DataPreprocessor{}
	if err := preprocessor.ComputeStats(dataset.Features); err != nil {
		return nil, err
	}
	for name, bounds := range preprocessor.FeatureStats() {
		logger.Debug("feature range", zap.String("feature", name), zap.Float64("min", bounds[0]), zap.Float64("max", bounds[1]))
	}

	trainX, trainY, testX, testY, err := ml.TrainTestSplit(dataset.Features, dataset.Targets, cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("training model",
		zap.String("model_type", model.Type()),
		zap.Int("train_rows", len(trainX)),
		zap.Int("test_rows", len(testX)))
	if err := model.Train(trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	predictions, err := ml.PredictAll(model, testX)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}
	mse, err := ml.MeanSquaredError(testY, predictions)
	if err != nil {
		return nil, err
	}
	r2, err := ml.R2Score(testY, predictions)
	if err != nil {
		return nil, err
	}

	if err := model.Save(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}

	report := Report{
		Experiment: cfg.Experiment,
		Model:      cfg.ModelName,
		MSE:        mse,
		R2Score:    r2,
	}
	if cfg.MetricsPath != "" {
		if err := WriteReport(cfg.MetricsPath, report); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}

	result := &Result{
		Report:    report,
		ModelPath: cfg.ModelPath,
		TrainRows: len(trainX),
		TestRows:  len(testX),
	}
	if recorder != nil {
		id, err := recorder.SaveTrainingRun(ctx, db.TrainingRun{
			Experiment: cfg.Experiment,
			ModelName:  cfg.ModelName,
			ModelType:  model.Type(),
			ModelPath:  cfg.ModelPath,
			MSE:        mse,
			R2:         r2,
			TrainRows:  len(trainX),
			TestRows:   len(testX),
		})
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		result.RunID = id
	}

	logger.Info("training finished",
		zap.String("experiment", cfg.Experiment),
		zap.Float64("mse", mse),
		zap.Float64("r2_score", r2),
		zap.String("model_path", cfg.ModelPath))
	return result, nil
}

// WriteReport writes report as 4-space indented JSON, creating parent
// directories.
func WriteReport(path string, report Report) error {
	payload, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
