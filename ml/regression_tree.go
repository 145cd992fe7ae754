package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// TreeNode is one entry of a flattened tree. Children are absolute indexes
// into the owning slice; the root is always at index 0.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// RegressionTree is a single CART tree fitted on squared error.
type RegressionTree struct {
	MaxDepth       int
	MinSamplesLeaf int

	nodes       []TreeNode
	numFeatures int
}

// NewRegressionTree returns an untrained tree limited to maxDepth levels.
func NewRegressionTree(maxDepth int) *RegressionTree {
	return &RegressionTree{MaxDepth: maxDepth, MinSamplesLeaf: 1}
}

func (rt *RegressionTree) Type() string {
	return ModelTypeRegressionTree
}

// Train grows the tree on the full training set.
func (rt *RegressionTree) Train(features [][]float64, targets []float64) error {
	if err := validateTrainingSet(features, targets); err != nil {
		return err
	}
	maxDepth := rt.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	minLeaf := rt.MinSamplesLeaf
	if minLeaf <= 0 {
		minLeaf = 1
	}

	// Squared error with a zero base prediction: g = -y, h = 1. With no
	// regularization the leaf weight is the mean target and the gain is the
	// variance reduction.
	grad := make([]float64, len(targets))
	hess := make([]float64, len(targets))
	for i, y := range targets {
		grad[i] = -y
		hess[i] = 1
	}

	builder := &treeBuilder{
		features:       features,
		grad:           grad,
		hess:           hess,
		maxDepth:       maxDepth,
		minChildWeight: float64(minLeaf),
		columns:        allColumns(len(features[0])),
	}
	rt.nodes = builder.build(allRows(len(features)))
	rt.numFeatures = len(features[0])
	return nil
}

// Predict walks the tree to a leaf.
func (rt *RegressionTree) Predict(features []float64) (float64, error) {
	if len(rt.nodes) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != rt.numFeatures {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrFeatureMismatch, rt.numFeatures, len(features))
	}
	return evalTree(rt.nodes, features)
}

// Save writes the tree as a single entry model file.
func (rt *RegressionTree) Save(path string) error {
	if len(rt.nodes) == 0 {
		return ErrNotTrained
	}
	return writeModelFile(path, modelFile{
		ModelType:    ModelTypeRegressionTree,
		FeatureNames: FeatureNames(),
		NumFeatures:  rt.numFeatures,
		LearningRate: 1,
		Trees:        [][]TreeNode{rt.nodes},
	})
}

// Load replaces the tree with the one stored at path.
func (rt *RegressionTree) Load(path string) error {
	file, err := readModelFile(path)
	if err != nil {
		return err
	}
	if file.ModelType != ModelTypeRegressionTree {
		return fmt.Errorf("%s: model type %q is not %q", path, file.ModelType, ModelTypeRegressionTree)
	}
	if len(file.Trees) != 1 {
		return fmt.Errorf("%s: expected 1 tree, got %d", path, len(file.Trees))
	}
	if err := validateNodes(file.Trees[0], file.NumFeatures); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	rt.nodes = file.Trees[0]
	rt.numFeatures = file.NumFeatures
	return nil
}

func evalTree(nodes []TreeNode, features []float64) (float64, error) {
	idx := 0
	for {
		node := nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// validateNodes rejects artifacts whose structure could loop or index out of
// bounds at inference time.
func validateNodes(nodes []TreeNode, numFeatures int) error {
	if len(nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, node.LeftChild, node.RightChild)
		}
	}
	return nil
}

// treeBuilder grows one tree from first and second order gradients using the
// exact greedy split search.
type treeBuilder struct {
	features       [][]float64
	grad           []float64
	hess           []float64
	columns        []int
	maxDepth       int
	minChildWeight float64
	lambda         float64
	alpha          float64
	gamma          float64
}

type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *treeBuilder) build(rows []int) []TreeNode {
	nodes := make([]TreeNode, 0, 64)
	b.grow(&nodes, rows, 0)
	return nodes
}

func (b *treeBuilder) grow(nodes *[]TreeNode, rows []int, depth int) int {
	idx := len(*nodes)
	*nodes = append(*nodes, TreeNode{})

	g, h := b.sums(rows)
	leaf := TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      b.leafWeight(g, h),
		IsLeaf:     true,
	}
	if depth >= b.maxDepth || len(rows) < 2 {
		(*nodes)[idx] = leaf
		return idx
	}

	split, ok := b.findBestSplit(rows, g, h)
	if !ok {
		(*nodes)[idx] = leaf
		return idx
	}

	leftRows, rightRows := b.partition(rows, split.feature, split.threshold)
	if len(leftRows) == 0 || len(rightRows) == 0 {
		(*nodes)[idx] = leaf
		return idx
	}

	left := b.grow(nodes, leftRows, depth+1)
	right := b.grow(nodes, rightRows, depth+1)
	(*nodes)[idx] = TreeNode{
		FeatureIdx: split.feature,
		Threshold:  split.threshold,
		LeftChild:  left,
		RightChild: right,
		Value:      leaf.Value,
		IsLeaf:     false,
	}
	return idx
}

func (b *treeBuilder) findBestSplit(rows []int, totalG, totalH float64) (splitCandidate, bool) {
	best := splitCandidate{feature: -1}
	parentScore := b.score(totalG, totalH)
	sorted := make([]int, len(rows))

	for _, feature := range b.columns {
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool {
			return b.features[sorted[i]][feature] < b.features[sorted[j]][feature]
		})

		var leftG, leftH float64
		for i := 0; i < len(sorted)-1; i++ {
			row := sorted[i]
			leftG += b.grad[row]
			leftH += b.hess[row]

			current := b.features[row][feature]
			next := b.features[sorted[i+1]][feature]
			if current == next {
				continue
			}
			rightH := totalH - leftH
			if leftH < b.minChildWeight || rightH < b.minChildWeight {
				continue
			}
			rightG := totalG - leftG
			gain := 0.5*(b.score(leftG, leftH)+b.score(rightG, rightH)-parentScore) - b.gamma
			if gain > best.gain+1e-12 {
				best = splitCandidate{
					feature:   feature,
					threshold: current + (next-current)/2,
					gain:      gain,
				}
			}
		}
	}
	if best.feature == -1 {
		return best, false
	}
	return best, true
}

func (b *treeBuilder) partition(rows []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, row := range rows {
		if b.features[row][feature] <= threshold {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return left, right
}

func (b *treeBuilder) sums(rows []int) (float64, float64) {
	var g, h float64
	for _, row := range rows {
		g += b.grad[row]
		h += b.hess[row]
	}
	return g, h
}

// score is the structure score of a node: T(G)^2 / (H + lambda), where T
// applies L1 soft thresholding.
func (b *treeBuilder) score(g, h float64) float64 {
	t := b.thresholdL1(g)
	return t * t / (h + b.lambda)
}

func (b *treeBuilder) leafWeight(g, h float64) float64 {
	if h+b.lambda == 0 {
		return 0
	}
	return -b.thresholdL1(g) / (h + b.lambda)
}

func (b *treeBuilder) thresholdL1(g float64) float64 {
	if b.alpha <= 0 {
		return g
	}
	if math.Abs(g) <= b.alpha {
		return 0
	}
	if g > 0 {
		return g - b.alpha
	}
	return g + b.alpha
}

func validateTrainingSet(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return ErrEmptyDataset
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("feature vectors are empty")
	}
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, expected %d", ErrFeatureMismatch, i, len(row), width)
		}
	}
	return nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func allColumns(n int) []int {
	return allRows(n)
}
