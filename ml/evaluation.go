package ml

import (
	"errors"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles rows with a fixed seed and holds out
// ceil(n*testRatio) of them for testing.
func TrainTestSplit(features [][]float64, targets []float64, testRatio float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, err error) {
	if len(features) != len(targets) {
		return nil, nil, nil, nil, errors.New("features and targets size mismatch")
	}
	if len(features) < 2 {
		return nil, nil, nil, nil, errors.New("need at least 2 rows to split")
	}
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	testSize := int(math.Ceil(float64(len(features)) * testRatio))
	if testSize >= len(features) {
		testSize = len(features) - 1
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))
	for i, idx := range indices {
		if i < testSize {
			testX = append(testX, features[idx])
			testY = append(testY, targets[idx])
		} else {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, targets[idx])
		}
	}
	return trainX, trainY, testX, testY, nil
}

// MeanSquaredError is the mean of squared residuals.
func MeanSquaredError(actual, predicted []float64) (float64, error) {
	if err := checkPairs(actual, predicted); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return sum / float64(len(actual)), nil
}

// R2Score is the coefficient of determination. A constant target scores 1 on
// a perfect fit and 0 otherwise.
func R2Score(actual, predicted []float64) (float64, error) {
	if err := checkPairs(actual, predicted); err != nil {
		return 0, err
	}
	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var residual, total float64
	for i := range actual {
		diff := actual[i] - predicted[i]
		residual += diff * diff
		dev := actual[i] - mean
		total += dev * dev
	}
	if total == 0 {
		if residual == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - residual/total, nil
}

// PredictAll scores every row, stopping at the first failure.
func PredictAll(model Regressor, features [][]float64) ([]float64, error) {
	predictions := make([]float64, len(features))
	for i, row := range features {
		value, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		predictions[i] = value
	}
	return predictions, nil
}

func checkPairs(actual, predicted []float64) error {
	if len(actual) == 0 {
		return ErrEmptyDataset
	}
	if len(actual) != len(predicted) {
		return errors.New("actual and predicted size mismatch")
	}
	return nil
}
