package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"winequality/config"
	qhttp "winequality/http"
	"winequality/logging"
	"winequality/ml"
	"winequality/monitoring"
)

func serveCmd(configPath *string) *cobra.Command {
	var port int
	var modelPath string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve wine quality predictions over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			if modelPath != "" {
				cfg.ML.ModelPath = modelPath
			}

			logger, level := logging.New(cfg.Log)
			defer func() { _ = logger.Sync() }()

			srv, err := newPredictionServer(cfg, logger)
			if err != nil {
				logger.Error("failed to start prediction service", zap.Error(err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := os.Stat(*configPath); err == nil {
				go watchLogLevel(ctx, *configPath, logger, level)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			return srv.Stop()
		},
	}

	c.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides http.port)")
	c.Flags().StringVar(&modelPath, "model", "", "Model file (overrides ml.model_path)")
	return c
}

// newPredictionServer loads the model once and wires it, optionally behind
// the LRU cache, into the HTTP server.
func newPredictionServer(cfg *config.Config, logger *zap.Logger) (*qhttp.Server, error) {
	model, err := ml.LoadModel("", cfg.ML.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ML.ModelPath, err)
	}
	if cfg.ML.ModelType != "" && model.Type() != cfg.ML.ModelType {
		logger.Warn("model file type differs from ml.model_type",
			zap.String("file", model.Type()),
			zap.String("configured", cfg.ML.ModelType))
	}
	logger.Info("model loaded", zap.String("path", cfg.ML.ModelPath), zap.String("model_type", model.Type()))

	metrics := monitoring.NewMetrics()
	var regressor ml.Regressor = model
	if cfg.ML.CacheSize > 0 {
		cached, err := ml.NewCachedRegressor(model, cfg.ML.CacheSize)
		if err != nil {
			return nil, err
		}
		if err := metrics.RegisterCache(cached); err != nil {
			return nil, err
		}
		regressor = cached
	}

	return qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Name:           cfg.Service.Name,
		RollNo:         cfg.Service.RollNo,
	}, qhttp.Dependencies{
		Model:     regressor,
		ModelType: model.Type(),
		Metrics:   metrics,
		Logger:    logger,
	})
}

// watchLogLevel applies log.level edits while the server runs. Nothing else
// is reloaded; the model stays the one loaded at startup.
func watchLogLevel(ctx context.Context, path string, logger *zap.Logger, level zap.AtomicLevel) {
	err := config.Watch(ctx, path, logger, func(cfg *config.Config) {
		next := logging.ParseLevel(cfg.Log.Level)
		if next != level.Level() {
			level.SetLevel(next)
			logger.Info("log level changed", zap.Stringer("level", next))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("config watcher stopped", zap.Error(err))
	}
}
