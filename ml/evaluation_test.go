package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainTestSplit(t *testing.T) {
	features := make([][]float64, 10)
	targets := make([]float64, 10)
	for i := range features {
		features[i] = []float64{float64(i)}
		targets[i] = float64(i)
	}

	trainX, trainY, testX, testY, err := TrainTestSplit(features, targets, 0.2, 42)
	require.NoError(t, err)
	require.Len(t, trainX, 8)
	require.Len(t, trainY, 8)
	require.Len(t, testX, 2)
	require.Len(t, testY, 2)

	seen := make(map[float64]bool)
	for i, row := range append(append([][]float64{}, trainX...), testX...) {
		seen[row[0]] = true
		var label float64
		if i < len(trainY) {
			label = trainY[i]
		} else {
			label = testY[i-len(trainY)]
		}
		require.Equal(t, row[0], label, "row and label out of sync")
	}
	assert.Len(t, seen, 10, "every row exactly once")

	_, _, againX, _, err := TrainTestSplit(features, targets, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, testX, againX, "split must be deterministic for a fixed seed")
}

func TestTrainTestSplitRejectsBadInput(t *testing.T) {
	_, _, _, _, err := TrainTestSplit([][]float64{{1}}, []float64{1}, 0.2, 1)
	assert.Error(t, err, "single row")
	_, _, _, _, err = TrainTestSplit([][]float64{{1}, {2}}, []float64{1}, 0.2, 1)
	assert.Error(t, err, "size mismatch")
}

func TestRegressionMetrics(t *testing.T) {
	actual := []float64{3, 5, 7}
	predicted := []float64{4, 5, 6}

	mse, err := MeanSquaredError(actual, predicted)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, mse, 1e-12)

	r2, err := R2Score(actual, predicted)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, r2, 1e-12)

	perfect, _ := R2Score([]float64{5, 5}, []float64{5, 5})
	assert.Equal(t, 1.0, perfect, "perfect constant fit")
	constant, _ := R2Score([]float64{5, 5}, []float64{4, 6})
	assert.Equal(t, 0.0, constant, "imperfect constant fit")

	_, err = MeanSquaredError(nil, nil)
	assert.Error(t, err)
	_, err = R2Score([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}
