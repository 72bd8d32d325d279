package wind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrevailing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		obs   []Observation
		want  float64
		count int
	}{
		{"no samples", nil, DefaultDirectionDeg, 0},
		{"all calm", []Observation{{DirectionDeg: 90, SpeedMS: 2.0}, {DirectionDeg: 90, SpeedMS: 0.5}}, DefaultDirectionDeg, 0},
		{
			"mode wins",
			[]Observation{
				{DirectionDeg: 180, SpeedMS: 3},
				{DirectionDeg: 225.4, SpeedMS: 4},
				{DirectionDeg: 224.6, SpeedMS: 5},
				{DirectionDeg: 225, SpeedMS: 1},
			},
			225, 3,
		},
		{
			"tie goes to smallest",
			[]Observation{{DirectionDeg: 300, SpeedMS: 3}, {DirectionDeg: 40, SpeedMS: 3}},
			40, 2,
		},
		{
			"wraps 360 to north",
			[]Observation{{DirectionDeg: 359.7, SpeedMS: 3}, {DirectionDeg: 0, SpeedMS: 3}, {DirectionDeg: 90, SpeedMS: 3}},
			0, 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, n := Prevailing(tt.obs)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.count, n)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, Normalize(360), 1e-9)
	assert.InDelta(t, 270, Normalize(-90), 1e-9)
	assert.InDelta(t, 45, Normalize(405), 1e-9)
	assert.InDelta(t, 180, Normalize(180), 1e-9)
}

func TestAngularDifference(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 20, AngularDifference(350, 10), 1e-9)
	assert.InDelta(t, 180, AngularDifference(0, 180), 1e-9)
	assert.InDelta(t, 90, AngularDifference(270, 0), 1e-9)
}

func TestAligned(t *testing.T) {
	t.Parallel()

	assert.True(t, Aligned(270, 90, AlignmentToleranceDeg))
	assert.True(t, Aligned(270, 250, AlignmentToleranceDeg))
	assert.True(t, Aligned(270, 295, AlignmentToleranceDeg))
	assert.False(t, Aligned(270, 0, AlignmentToleranceDeg))
	assert.False(t, Aligned(270, 225, AlignmentToleranceDeg))
}
