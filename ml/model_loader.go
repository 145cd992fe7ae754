package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelOptions configures NewModel for either model type.
type ModelOptions struct {
	MaxTreeDepth int
	Boosting     GradientBoostingConfig
}

// NewModel returns an untrained model of the given type.
func NewModel(modelType string, opts ModelOptions) (MLModel, error) {
	switch modelType {
	case ModelTypeGradientBoosting:
		return NewGradientBoostingRegressor(opts.Boosting), nil
	case ModelTypeRegressionTree:
		return NewRegressionTree(opts.MaxTreeDepth), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, modelType)
	}
}

// LoadModel reads a saved model. An empty modelType accepts whatever type the
// file declares.
func LoadModel(modelType, path string) (MLModel, error) {
	if modelType == "" {
		detected, err := detectModelType(path)
		if err != nil {
			return nil, err
		}
		modelType = detected
	}
	model, err := NewModel(modelType, ModelOptions{})
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}

func detectModelType(path string) (string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var header struct {
		ModelType string `json:"model_type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return "", fmt.Errorf("decode model %s: %w", path, err)
	}
	return header.ModelType, nil
}
