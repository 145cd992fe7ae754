package ml

import "errors"

var (
	ErrNotTrained      = errors.New("model not trained")
	ErrFeatureMismatch = errors.New("feature count mismatch")
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrUnknownModel    = errors.New("unsupported model type")
)

const (
	ModelTypeGradientBoosting = "gradient_boosting"
	ModelTypeRegressionTree   = "regression_tree"
)

// Regressor scores a single feature vector. Implementations must be safe for
// concurrent use once trained or loaded.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// MLModel is a Regressor that can be trained and persisted.
type MLModel interface {
	Regressor
	Type() string
	Train(features [][]float64, targets []float64) error
	Save(path string) error
	Load(path string) error
}
