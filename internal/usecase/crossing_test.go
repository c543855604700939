package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/index_ratio_monitor/internal/domain"
	"github.com/vitos/index_ratio_monitor/internal/usecase"
)

func prev(v float64) usecase.RatioValue {
	return usecase.RatioValue{Value: v, Valid: true}
}

func TestDetectCrossings(t *testing.T) {
	thresholds := []float64{3.25, 3.26}

	tests := []struct {
		name string
		prev usecase.RatioValue
		next float64
		want []domain.Crossing
	}{
		{
			name: "no baseline yet",
			prev: usecase.RatioValue{},
			next: 3.30,
			want: nil,
		},
		{
			name: "no threshold between",
			prev: prev(3.20),
			next: 3.24,
			want: nil,
		},
		{
			name: "identical value",
			prev: prev(3.25),
			next: 3.25,
			want: nil,
		},
		{
			name: "single upward",
			prev: prev(3.24),
			next: 3.255,
			want: []domain.Crossing{
				{Threshold: 3.25, Direction: domain.DirectionUp, Ratio: 3.255},
			},
		},
		{
			name: "upward onto threshold counts",
			prev: prev(3.24),
			next: 3.25,
			want: []domain.Crossing{
				{Threshold: 3.25, Direction: domain.DirectionUp, Ratio: 3.25},
			},
		},
		{
			name: "leaving threshold upward does not recount it",
			prev: prev(3.25),
			next: 3.255,
			want: nil,
		},
		{
			name: "jump across both, ascending order",
			prev: prev(3.24),
			next: 3.27,
			want: []domain.Crossing{
				{Threshold: 3.25, Direction: domain.DirectionUp, Ratio: 3.27},
				{Threshold: 3.26, Direction: domain.DirectionUp, Ratio: 3.27},
			},
		},
		{
			name: "drop across both, descending order",
			prev: prev(3.27),
			next: 3.20,
			want: []domain.Crossing{
				{Threshold: 3.26, Direction: domain.DirectionDown, Ratio: 3.20},
				{Threshold: 3.25, Direction: domain.DirectionDown, Ratio: 3.20},
			},
		},
		{
			name: "downward onto threshold counts",
			prev: prev(3.26),
			next: 3.25,
			want: []domain.Crossing{
				{Threshold: 3.25, Direction: domain.DirectionDown, Ratio: 3.25},
			},
		},
		{
			name: "leaving threshold downward does not recount it",
			prev: prev(3.25),
			next: 3.24,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.DetectCrossings(tt.prev, tt.next, thresholds)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Replays the reference sequence from the counting rules: 3.24 -> 3.27 ->
// 3.20 over thresholds {3.25, 3.26} yields two upward crossings then two
// downward crossings, higher threshold first on the way down.
func TestDetectCrossings_ReferenceSequence(t *testing.T) {
	thresholds := []float64{3.25, 3.26}

	up := usecase.DetectCrossings(prev(3.24), 3.27, thresholds)
	assert.Len(t, up, 2)
	assert.Equal(t, 3.25, up[0].Threshold)
	assert.Equal(t, 3.26, up[1].Threshold)
	assert.Equal(t, domain.DirectionUp, up[0].Direction)
	assert.Equal(t, domain.DirectionUp, up[1].Direction)

	down := usecase.DetectCrossings(prev(3.27), 3.20, thresholds)
	assert.Len(t, down, 2)
	assert.Equal(t, 3.26, down[0].Threshold)
	assert.Equal(t, 3.25, down[1].Threshold)
	assert.Equal(t, domain.DirectionDown, down[0].Direction)
	assert.Equal(t, domain.DirectionDown, down[1].Direction)
}
