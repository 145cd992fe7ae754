// Package config loads the YAML configuration shared by the serve and train
// commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"winequality/logging"
	"winequality/ml"
)

// Config is the root of config.yaml.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      logging.Config `yaml:"log"`
	ML       MLConfig       `yaml:"ml"`
	Database DatabaseConfig `yaml:"database"`
}

// ServiceConfig holds the identification fields echoed in every prediction.
type ServiceConfig struct {
	Name   string `yaml:"name"`
	RollNo string `yaml:"roll_no"`
}

// HTTPConfig configures the prediction server.
type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// MLConfig configures training and model loading.
type MLConfig struct {
	ModelType    string                    `yaml:"model_type"`
	ModelPath    string                    `yaml:"model_path"`
	MetricsPath  string                    `yaml:"metrics_path"`
	CacheSize    int                       `yaml:"cache_size"`
	DatasetPath  string                    `yaml:"dataset_path"`
	TestRatio    float64                   `yaml:"test_ratio"`
	Seed         int64                     `yaml:"seed"`
	MaxTreeDepth int                       `yaml:"max_tree_depth"`
	Experiment   string                    `yaml:"experiment"`
	ModelName    string                    `yaml:"model_name"`
	Boosting     ml.GradientBoostingConfig `yaml:"boosting"`
}

// DatabaseConfig locates the experiment history database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used for absent keys.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:   "R J Hari",
			RollNo: "2022BCS0125",
		},
		HTTP: HTTPConfig{
			Port:           8000,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Log: logging.DefaultConfig(),
		ML: MLConfig{
			ModelType:    ml.ModelTypeGradientBoosting,
			ModelPath:    "app/artifacts/model.json",
			MetricsPath:  "app/artifacts/metrics.json",
			CacheSize:    1024,
			DatasetPath:  "dataset/winequality-red.csv",
			TestRatio:    0.2,
			Seed:         42,
			MaxTreeDepth: 6,
			Experiment:   "EXP-07",
			ModelName:    "XGBoost fully tuned",
			Boosting:     ml.DefaultGradientBoostingConfig(),
		},
		Database: DatabaseConfig{
			Path: "app/artifacts/experiments.db",
		},
	}
}

// Load decodes path over the defaults. An empty path or a missing file yields
// the defaults; any other read or decode failure is returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	payload, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(payload, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	case c.HTTP.Timeout <= 0:
		return errors.New("http.timeout must be positive")
	case c.HTTP.MaxBodyBytes <= 0:
		return errors.New("http.max_body_bytes must be positive")
	case c.ML.ModelPath == "":
		return errors.New("ml.model_path is required")
	case c.ML.CacheSize < 0:
		return errors.New("ml.cache_size must not be negative")
	case c.ML.TestRatio <= 0 || c.ML.TestRatio >= 1:
		return fmt.Errorf("ml.test_ratio must be in (0, 1), got %v", c.ML.TestRatio)
	}
	if _, err := ml.NewModel(c.ML.ModelType, ml.ModelOptions{}); err != nil {
		return fmt.Errorf("ml.model_type: %w", err)
	}
	if c.ML.ModelType == ml.ModelTypeGradientBoosting {
		if err := c.ML.Boosting.Validate(); err != nil {
			return fmt.Errorf("ml.boosting: %w", err)
		}
	}
	return nil
}
