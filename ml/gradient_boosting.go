package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// GradientBoostingConfig holds the boosting hyperparameters.
type GradientBoostingConfig struct {
	NEstimators     int     `yaml:"n_estimators"`
	LearningRate    float64 `yaml:"learning_rate"`
	MaxDepth        int     `yaml:"max_depth"`
	Subsample       float64 `yaml:"subsample"`
	ColsampleByTree float64 `yaml:"colsample_bytree"`
	RegAlpha        float64 `yaml:"reg_alpha"`
	RegLambda       float64 `yaml:"reg_lambda"`
	MinChildWeight  float64 `yaml:"min_child_weight"`
	Gamma           float64 `yaml:"gamma"`
	Seed            int64   `yaml:"seed"`
}

// DefaultGradientBoostingConfig is the tuned configuration the production
// model is trained with.
func DefaultGradientBoostingConfig() GradientBoostingConfig {
	return GradientBoostingConfig{
		NEstimators:     600,
		LearningRate:    0.03,
		MaxDepth:        6,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		RegAlpha:        0.1,
		RegLambda:       1.0,
		MinChildWeight:  1,
		Seed:            42,
	}
}

// Validate rejects hyperparameters the trainer cannot use.
func (c GradientBoostingConfig) Validate() error {
	switch {
	case c.NEstimators <= 0:
		return fmt.Errorf("n_estimators must be positive, got %d", c.NEstimators)
	case c.LearningRate <= 0 || c.LearningRate > 1:
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", c.LearningRate)
	case c.MaxDepth <= 0:
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	case c.Subsample <= 0 || c.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", c.Subsample)
	case c.ColsampleByTree <= 0 || c.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %v", c.ColsampleByTree)
	case c.RegAlpha < 0 || c.RegLambda < 0 || c.Gamma < 0 || c.MinChildWeight < 0:
		return fmt.Errorf("regularization terms must be non-negative")
	}
	return nil
}

// GradientBoostingRegressor is an additive ensemble of regression trees fitted
// with second order boosting on squared error.
type GradientBoostingRegressor struct {
	config      GradientBoostingConfig
	baseScore   float64
	trees       [][]TreeNode
	numFeatures int
}

// NewGradientBoostingRegressor returns an untrained ensemble.
func NewGradientBoostingRegressor(config GradientBoostingConfig) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{config: config}
}

func (gb *GradientBoostingRegressor) Type() string {
	return ModelTypeGradientBoosting
}

func (gb *GradientBoostingRegressor) NumTrees() int {
	return len(gb.trees)
}

// Train fits the ensemble starting from the mean target.
func (gb *GradientBoostingRegressor) Train(features [][]float64, targets []float64) error {
	if err := validateTrainingSet(features, targets); err != nil {
		return err
	}
	if err := gb.config.Validate(); err != nil {
		return err
	}

	n := len(features)
	width := len(features[0])
	rnd := rand.New(rand.NewSource(gb.config.Seed))

	base := 0.0
	for _, y := range targets {
		base += y
	}
	base /= float64(n)

	preds := make([]float64, n)
	for i := range preds {
		preds[i] = base
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	rowCount := sampleSize(n, gb.config.Subsample)
	colCount := sampleSize(width, gb.config.ColsampleByTree)

	trees := make([][]TreeNode, 0, gb.config.NEstimators)
	for round := 0; round < gb.config.NEstimators; round++ {
		for i := range preds {
			grad[i] = preds[i] - targets[i]
			hess[i] = 1
		}

		rows := allRows(n)
		if rowCount < n {
			rows = sortedSample(rnd, n, rowCount)
		}
		columns := allColumns(width)
		if colCount < width {
			columns = sortedSample(rnd, width, colCount)
		}

		builder := &treeBuilder{
			features:       features,
			grad:           grad,
			hess:           hess,
			columns:        columns,
			maxDepth:       gb.config.MaxDepth,
			minChildWeight: gb.config.MinChildWeight,
			lambda:         gb.config.RegLambda,
			alpha:          gb.config.RegAlpha,
			gamma:          gb.config.Gamma,
		}
		tree := builder.build(rows)
		trees = append(trees, tree)

		for i, row := range features {
			value, err := evalTree(tree, row)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			preds[i] += gb.config.LearningRate * value
		}
	}

	gb.baseScore = base
	gb.trees = trees
	gb.numFeatures = width
	return nil
}

// Predict sums the base score and every scaled tree output.
func (gb *GradientBoostingRegressor) Predict(features []float64) (float64, error) {
	if len(gb.trees) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != gb.numFeatures {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrFeatureMismatch, gb.numFeatures, len(features))
	}
	score := gb.baseScore
	for _, tree := range gb.trees {
		value, err := evalTree(tree, features)
		if err != nil {
			return 0, err
		}
		score += gb.config.LearningRate * value
	}
	return score, nil
}

// Save writes the ensemble as a JSON model file.
func (gb *GradientBoostingRegressor) Save(path string) error {
	if len(gb.trees) == 0 {
		return ErrNotTrained
	}
	return writeModelFile(path, modelFile{
		ModelType:    ModelTypeGradientBoosting,
		FeatureNames: FeatureNames(),
		NumFeatures:  gb.numFeatures,
		BaseScore:    gb.baseScore,
		LearningRate: gb.config.LearningRate,
		Trees:        gb.trees,
	})
}

// Load replaces the ensemble with the one stored at path.
func (gb *GradientBoostingRegressor) Load(path string) error {
	file, err := readModelFile(path)
	if err != nil {
		return err
	}
	if file.ModelType != ModelTypeGradientBoosting {
		return fmt.Errorf("%s: model type %q is not %q", path, file.ModelType, ModelTypeGradientBoosting)
	}
	if len(file.Trees) == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotTrained)
	}
	if file.LearningRate <= 0 || math.IsNaN(file.LearningRate) {
		return fmt.Errorf("%s: invalid learning rate %v", path, file.LearningRate)
	}
	for i, tree := range file.Trees {
		if err := validateNodes(tree, file.NumFeatures); err != nil {
			return fmt.Errorf("%s: tree %d: %w", path, i, err)
		}
	}
	gb.config.LearningRate = file.LearningRate
	gb.baseScore = file.BaseScore
	gb.trees = file.Trees
	gb.numFeatures = file.NumFeatures
	return nil
}

func sampleSize(n int, ratio float64) int {
	if ratio <= 0 || ratio >= 1 {
		return n
	}
	size := int(math.Round(float64(n) * ratio))
	if size < 1 {
		size = 1
	}
	return size
}

// sortedSample draws k distinct indexes from [0, n) without replacement.
func sortedSample(rnd *rand.Rand, n, k int) []int {
	picked := rnd.Perm(n)[:k]
	sort.Ints(picked)
	return picked
}
