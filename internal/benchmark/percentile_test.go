package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileNearestRankOnTenEvenlySpacedSamples(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	assert.Equal(t, 50.0, Percentile(sorted, 50))
	assert.Equal(t, 100.0, Percentile(sorted, 95))
	assert.Equal(t, 100.0, Percentile(sorted, 99))
}

func TestPercentileEmptySampleIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestPercentileSingleSampleAlwaysReturnsIt(t *testing.T) {
	assert.Equal(t, 42.0, Percentile([]float64{42}, 1))
	assert.Equal(t, 42.0, Percentile([]float64{42}, 99))
}

func TestSummarizeComputesAllFields(t *testing.T) {
	s := Summarize([]float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 100.0, s.Max)
	assert.Equal(t, 55.0, s.Avg)
	assert.Equal(t, 50.0, s.P50)
	assert.Equal(t, 100.0, s.P95)
	assert.Equal(t, 100.0, s.P99)
	assert.Equal(t, 10, s.Count)
}

func TestSummarizeEmptyIsZeroValue(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0.0, s.P99)
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	samples := []float64{30, 10, 20}
	_ = Summarize(samples)
	assert.Equal(t, []float64{30, 10, 20}, samples)
}
