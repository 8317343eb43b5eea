package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampR(t *testing.T) {
	b := RBounds{Min: 0.2, Max: 0.8}

	assert.Equal(t, 0.5, b.ClampR(0.5))
	assert.Equal(t, 0.2, b.ClampR(0.0))
	assert.Equal(t, 0.2, b.ClampR(-1.0))
	assert.Equal(t, 0.8, b.ClampR(1.0))
	assert.Equal(t, 0.2, b.ClampR(0.2))
	assert.Equal(t, 0.8, b.ClampR(0.8))

	// Degenerate bounds collapse to Min
	degenerate := RBounds{Min: 0.6, Max: 0.4}
	assert.Equal(t, 0.6, degenerate.ClampR(0.5))
}

func TestMix(t *testing.T) {
	res := Mix(0.5, RBounds{Min: 0, Max: 1}, 4000, 2000)
	assert.Equal(t, 0.5, res.R)
	assert.Equal(t, 2000.0, res.Fixed)
	assert.Equal(t, 1000.0, res.Performance)
	assert.Equal(t, 3000.0, res.Total)
}

func TestMixClampsBeforeComputing(t *testing.T) {
	res := Mix(0.95, RBounds{Min: 0.1, Max: 0.6}, 4000, 2000)
	assert.Equal(t, 0.6, res.R)
	assert.Equal(t, 2400.0, res.Fixed)
	assert.InDelta(t, 800.0, res.Performance, 0.01)
}

func TestMixAllPerformance(t *testing.T) {
	res := Mix(0, RBounds{Min: 0, Max: 1}, 4000, 2000)
	assert.Equal(t, 0.0, res.Fixed)
	assert.Equal(t, 2000.0, res.Performance)
	assert.Equal(t, 2000.0, res.Total)
}
