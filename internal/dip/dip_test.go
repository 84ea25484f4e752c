package dip

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBottom_ExampleScenario(t *testing.T) {
	values := []float64{0.9, 0.85, 0.95}
	// tolerance = (1 - 0.85) * 0.1 = 0.015, threshold 0.865
	assert.Equal(t, 1, Bottom(values, 0.85, 1))
}

func TestBottom(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		minimum  float64
		baseline float64
		want     int
	}{
		{"wide bottom", []float64{1, 0.5, 0.52, 0.54, 0.56, 1}, 0.5, 1, 3},
		{"flat curve at baseline", []float64{1, 1, 1}, 1, 1, 0},
		{"custom baseline", []float64{2, 1.1, 1, 1.05}, 1, 2, 2},
		{"empty", nil, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bottom(tt.values, tt.minimum, tt.baseline))
		})
	}
}

func TestMinimumAndMagnitude(t *testing.T) {
	m, err := Minimum([]float64{1.2, 0.7, 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0.7, m)
	assert.InDelta(t, 0.3, Magnitude(m), 1e-12)

	_, err = Minimum(nil)
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestLatency(t *testing.T) {
	values := []float64{1, 0.6, 0.4, 0.4, 0.8}
	times := []int{100, 101, 102, 103, 104}

	lat, err := Latency(values, times, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 102, lat, "first occurrence wins")

	_, err = Latency(values, times, 0.4000000001)
	assert.ErrorIs(t, err, ErrLatencyUnavailable)

	_, err = Latency(values, times[:2], 0.4)
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	values := []float64{1.0, 0.8, 0.6, 0.62, 0.9}
	times := []int{0, 1, 2, 3, 4}

	rec, err := Extract(values, times)
	require.NoError(t, err)

	minimum := 0.6
	want := Record{
		Minimum:   minimum,
		Magnitude: 1 - minimum,
		Bottom:    2, // threshold 0.64
		Latency:   2,
		LatencyOK: true,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_NaNMinimumLeavesLatencyUnavailable(t *testing.T) {
	// NaN never compares equal, so no sample can match it.
	rec, err := Extract([]float64{math.NaN(), math.NaN()}, []int{0, 1})
	assert.ErrorIs(t, err, ErrLatencyUnavailable)
	assert.False(t, rec.LatencyOK)
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyWindow)
}
