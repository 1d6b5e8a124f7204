package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	m, ok := mean([]float64{1, 2, 3, 4})
	require.True(t, ok)
	assert.InDelta(t, 2.5, m, 1e-9)

	_, ok = mean(nil)
	assert.False(t, ok)
}

func TestStddevSample(t *testing.T) {
	s, ok := stddev([]float64{100, 200, 300})
	require.True(t, ok)
	assert.InDelta(t, 100.0, s, 1e-9)

	_, ok = stddev([]float64{42})
	assert.False(t, ok, "single observation has no sample std")
}

func TestMedian(t *testing.T) {
	m, ok := median([]float64{3, 1, 2})
	require.True(t, ok)
	assert.InDelta(t, 2.0, m, 1e-9)

	m, ok = median([]float64{4, 1, 3, 2})
	require.True(t, ok)
	assert.InDelta(t, 2.5, m, 1e-9)
}

func TestQuantileLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	q, ok := quantile(values, 0.25)
	require.True(t, ok)
	assert.InDelta(t, 1.75, q, 1e-9)

	q, _ = quantile(values, 0)
	assert.InDelta(t, 1.0, q, 1e-9)

	q, _ = quantile(values, 1)
	assert.InDelta(t, 4.0, q, 1e-9)

	// Input order must not matter.
	q, _ = quantile([]float64{4, 1, 3, 2}, 0.25)
	assert.InDelta(t, 1.75, q, 1e-9)

	_, ok = quantile(nil, 0.5)
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 40))
	assert.Equal(t, 40.0, clamp(99, 0, 40))
	assert.Equal(t, 17.5, clamp(17.5, 0, 40))
}

func TestModeTiesPickSmallest(t *testing.T) {
	s, ok := modeString([]string{"UYU", "USD", "USD", "UYU"})
	require.True(t, ok)
	assert.Equal(t, "USD", s)

	n, ok := modeInt([]int{5, 3, 3, 5})
	require.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = modeInt([]int{7, 7, 2})
	require.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = modeInt(nil)
	assert.False(t, ok)
}
