package ml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingModel struct {
	calls int
	err   error
}

func (m *countingModel) Predict(features []float64) (float64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	sum := 0.0
	for _, v := range features {
		sum += v
	}
	return sum, nil
}

func TestCachedRegressor(t *testing.T) {
	inner := &countingModel{}
	cached, err := NewCachedRegressor(inner, 2)
	require.NoError(t, err)

	sample := make([]float64, NumFeatures)
	sample[10] = 9.4
	first, err := cached.Predict(sample)
	require.NoError(t, err)
	second, err := cached.Predict(sample)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, uint64(1), cached.Hits())
	assert.Equal(t, uint64(1), cached.Misses())

	// caller mutating its slice must not affect the cached key
	sample[10] = 12
	third, _ := cached.Predict(sample)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedRegressorDoesNotCacheErrors(t *testing.T) {
	inner := &countingModel{err: errors.New("boom")}
	cached, err := NewCachedRegressor(inner, 8)
	require.NoError(t, err)

	sample := make([]float64, NumFeatures)
	for i := 0; i < 2; i++ {
		_, err := cached.Predict(sample)
		assert.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls, "errors must reach the model each time")
	assert.Zero(t, cached.Len())

	inner.err = nil
	_, err = cached.Predict([]float64{1, 2})
	require.NoError(t, err, "short vectors bypass the cache")
	assert.Zero(t, cached.Len())
}

func TestNewCachedRegressorInvalidSize(t *testing.T) {
	_, err := NewCachedRegressor(&countingModel{}, 0)
	assert.Error(t, err)
}
