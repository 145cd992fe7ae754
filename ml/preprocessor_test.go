package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataPreprocessorComputeStats(t *testing.T) {
	features := [][]float64{
		FeatureVector(WineSample{FixedAcidity: 7.4, VolatileAcidity: 0.7, Density: 0.9978, PH: 3.51, Alcohol: 9.4}),
		FeatureVector(WineSample{FixedAcidity: 11.2, VolatileAcidity: 0.28, Density: 0.998, PH: 3.16, Alcohol: 9.8}),
		FeatureVector(WineSample{FixedAcidity: 7.8, VolatileAcidity: 0.88, Density: 0.9968, PH: 3.2, Alcohol: 12.8}),
	}

	preprocessor := &DataPreprocessor{}
	require.NoError(t, preprocessor.ComputeStats(features))

	stats := preprocessor.FeatureStats()
	require.Len(t, stats, NumFeatures)
	assert.Equal(t, [2]float64{9.4, 12.8}, stats["alcohol"])
	assert.Equal(t, [2]float64{0, 0}, stats["citric_acid"])
}

func TestDataPreprocessorRejectsEmpty(t *testing.T) {
	preprocessor := &DataPreprocessor{}
	assert.Error(t, preprocessor.ComputeStats(nil))
	assert.Error(t, preprocessor.ComputeStats([][]float64{{1, 2}}))
	assert.Nil(t, preprocessor.FeatureStats())
}
