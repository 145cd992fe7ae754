package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	targets := []float64{5, 5, 7, 7}

	model := NewRegressionTree(2)
	require.NoError(t, model.Train(features, targets))

	score, err := model.Predict([]float64{0.15, 0.15})
	require.NoError(t, err)
	assert.Equal(t, 5.0, score)

	score, err = model.Predict([]float64{0.85, 0.85})
	require.NoError(t, err)
	assert.Equal(t, 7.0, score)
}

func TestRegressionTreeDeepNodesUseAbsoluteIndexes(t *testing.T) {
	features := make([][]float64, 0, 16)
	targets := make([]float64, 0, 16)
	for i := 0; i < 16; i++ {
		features = append(features, []float64{float64(i)})
		targets = append(targets, float64(i*i))
	}

	model := NewRegressionTree(6)
	require.NoError(t, model.Train(features, targets))
	for i, row := range features {
		score, err := model.Predict(row)
		require.NoError(t, err, "row %d", i)
		assert.Equal(t, targets[i], score, "row %d", i)
	}
}

func TestRegressionTreeErrors(t *testing.T) {
	model := NewRegressionTree(3)
	_, err := model.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.ErrorIs(t, model.Train(nil, nil), ErrEmptyDataset)
	assert.ErrorIs(t, model.Train([][]float64{{1}, {2, 3}}, []float64{1, 2}), ErrFeatureMismatch)
	assert.Error(t, model.Train([][]float64{{1}, {2}}, []float64{1}), "size mismatch")

	require.NoError(t, model.Train([][]float64{{1, 1}, {2, 2}}, []float64{1, 2}))
	_, err = model.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestRegressionTreeSaveLoad(t *testing.T) {
	features := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50}}
	targets := []float64{3, 4, 5, 6, 7}

	model := NewRegressionTree(3)
	require.NoError(t, model.Train(features, targets))
	path := filepath.Join(t.TempDir(), "nested", "tree.json")
	require.NoError(t, model.Save(path))

	loaded, err := LoadModel("", path)
	require.NoError(t, err)
	assert.Equal(t, ModelTypeRegressionTree, loaded.Type())
	for _, row := range features {
		want, _ := model.Predict(row)
		got, err := loaded.Predict(row)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12)
	}
}

func TestRegressionTreeLoadRejectsCorruptTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	payload := `{"model_type":"regression_tree","num_features":2,"learning_rate":1,"trees":[[` +
		`{"feature_idx":0,"threshold":1,"left_child":0,"right_child":0,"value":0,"is_leaf":false}]]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	assert.Error(t, NewRegressionTree(3).Load(path), "cyclic tree")
}
