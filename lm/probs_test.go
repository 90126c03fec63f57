package lm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name      string
		probs     []uint64
		norm      uint64
		want      []uint64
		wantDelta int64
	}{
		{name: "already valid", probs: []uint64{0, 4, 6}, norm: 10, want: []uint64{0, 4, 6}},
		{name: "symbol zero mass moved", probs: []uint64{5, 10, 10}, norm: 25, want: []uint64{0, 13, 12}},
		{name: "deficit", probs: []uint64{0, 3, 3}, norm: 10, want: []uint64{0, 5, 5}, wantDelta: 4},
		{name: "excess from largest", probs: []uint64{0, 10, 30, 20}, norm: 50, want: []uint64{0, 10, 20, 20}, wantDelta: -10},
		{name: "excess taken largest first", probs: []uint64{0, 10, 12, 12}, norm: 20, want: []uint64{0, 10, 1, 9}, wantDelta: -14},
		{name: "excess below floor", probs: []uint64{0, 1, 1, 1}, norm: 1, want: []uint64{0, 0, 0, 1}, wantDelta: -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := Repair(tt.probs, tt.norm)
			assert.Equal(t, tt.want, tt.probs)
			assert.Equal(t, tt.wantDelta, delta)
			assert.Equal(t, tt.norm, Sum(tt.probs))
		})
	}
}

func TestRanked(t *testing.T) {
	got := Ranked([]uint64{0, 5, 0, 9, 5})
	require.Equal(t, []Prediction{
		{Symbol: 3, Prob: 9},
		{Symbol: 1, Prob: 5},
		{Symbol: 4, Prob: 5},
	}, got)
}

func TestUniformMass(t *testing.T) {
	assert.Equal(t, uint64(50), UniformMass(1000, 50))
	assert.Equal(t, uint64(1000), UniformMass(1000, 5000))
	assert.Equal(t, uint64(0), UniformMass(10, 50))
}

func TestResize(t *testing.T) {
	p := []uint64{1, 2, 3, 4}
	r := Resize(p, 3)
	require.Equal(t, []uint64{0, 0, 0}, r)
	require.Equal(t, &p[0], &r[0])
	require.Len(t, Resize(nil, 5), 5)
}
