package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"winequality/config"
	"winequality/db"
	"winequality/logging"
	"winequality/training"
)

func trainCmd(configPath *string) *cobra.Command {
	var (
		datasetPath string
		modelType   string
		modelPath   string
		metricsPath string
		experiment  string
		modelName   string
		dbPath      string
		noRecord    bool
	)

	c := &cobra.Command{
		Use:   "train",
		Short: "Fit the wine quality model and write the model and metrics files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			overrideString(&cfg.ML.DatasetPath, datasetPath)
			overrideString(&cfg.ML.ModelType, modelType)
			overrideString(&cfg.ML.ModelPath, modelPath)
			overrideString(&cfg.ML.MetricsPath, metricsPath)
			overrideString(&cfg.ML.Experiment, experiment)
			overrideString(&cfg.ML.ModelName, modelName)
			overrideString(&cfg.Database.Path, dbPath)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, _ := logging.New(cfg.Log)
			defer func() { _ = logger.Sync() }()

			var recorder training.RunRecorder
			var store *db.Store
			if !noRecord {
				store, err = db.Open(cfg.Database.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				recorder = store
			}

			result, err := training.Run(cmd.Context(), trainingConfig(cfg), recorder, logger)
			if err != nil {
				logger.Error("training failed", zap.Error(err))
				return err
			}

			out := cmd.OutOrStdout()
			printResult(out, cfg, result)
			if store != nil {
				best, err := store.BestTrainingRun(cmd.Context())
				if err != nil {
					return err
				}
				if best != nil {
					fmt.Fprintf(out, "Best run so far: #%d %s (%s) mse=%.4f r2=%.4f\n",
						best.ID, best.Experiment, best.ModelName, best.MSE, best.R2)
				}
			}
			return nil
		},
	}

	c.Flags().StringVar(&datasetPath, "dataset", "", "Semicolon separated training CSV (overrides ml.dataset_path)")
	c.Flags().StringVar(&modelType, "model-type", "", "gradient_boosting or regression_tree (overrides ml.model_type)")
	c.Flags().StringVar(&modelPath, "model", "", "Model output file (overrides ml.model_path)")
	c.Flags().StringVar(&metricsPath, "metrics", "", "Metrics output file (overrides ml.metrics_path)")
	c.Flags().StringVar(&experiment, "experiment", "", "Experiment id written to the metrics file")
	c.Flags().StringVar(&modelName, "model-name", "", "Model name written to the metrics file")
	c.Flags().StringVar(&dbPath, "db", "", "Experiment history database (overrides database.path)")
	c.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the run in the experiment history")
	return c
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func trainingConfig(cfg *config.Config) training.Config {
	return training.Config{
		DatasetPath:  cfg.ML.DatasetPath,
		ModelType:    cfg.ML.ModelType,
		ModelPath:    cfg.ML.ModelPath,
		MetricsPath:  cfg.ML.MetricsPath,
		TestRatio:    cfg.ML.TestRatio,
		Seed:         cfg.ML.Seed,
		MaxTreeDepth: cfg.ML.MaxTreeDepth,
		Boosting:     cfg.ML.Boosting,
		Experiment:   cfg.ML.Experiment,
		ModelName:    cfg.ML.ModelName,
	}
}

func printResult(w io.Writer, cfg *config.Config, result *training.Result) {
	fmt.Fprintf(w, "Name: %s\n", cfg.Service.Name)
	fmt.Fprintf(w, "Roll No: %s\n", cfg.Service.RollNo)
	fmt.Fprintf(w, "Experiment: %s (%s)\n", result.Experiment, result.Model)
	fmt.Fprintf(w, "MSE: %.4f\n", result.MSE)
	fmt.Fprintf(w, "R2 Score: %.4f\n", result.R2Score)
	fmt.Fprintf(w, "Model saved to %s\n", result.ModelPath)
}
