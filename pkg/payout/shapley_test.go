package payout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams() Params {
	return Params{V: 1000, V0: 200, P0: 0.5, Beta: 1.0, Gamma: 0.7, K: 4}
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, baseParams().Validate())

	bad := baseParams()
	bad.V0 = 2000
	assert.Error(t, bad.Validate(), "V0 above V must be rejected")

	bad = baseParams()
	bad.P0 = 1.5
	assert.Error(t, bad.Validate())

	bad = baseParams()
	bad.Beta = 0
	assert.Error(t, bad.Validate())

	bad = baseParams()
	bad.Gamma = 0
	assert.Error(t, bad.Validate())

	bad = baseParams()
	bad.K = MaxK + 1
	assert.Error(t, bad.Validate())
}

func TestDefaultWeightDecays(t *testing.T) {
	p := baseParams()
	assert.InDelta(t, 1.0, p.DefaultWeight(1), 1e-12)
	assert.InDelta(t, 0.7, p.DefaultWeight(2), 1e-12)
	assert.InDelta(t, 0.49, p.DefaultWeight(3), 1e-12)
}

func TestSplitNoPasses(t *testing.T) {
	// With no QC evidence the pool is the prior-quality value and the worker
	// takes all of it.
	res, err := Split(baseParams(), "worker-1", nil)
	require.NoError(t, err)

	expectedPool := 200 + 800*0.5
	assert.InDelta(t, expectedPool, res.Pool, 0.01)
	assert.InDelta(t, expectedPool, res.WorkerShare, 0.01)
	assert.Empty(t, res.ReviewerShares)
	assert.InDelta(t, 0.5, res.Quality, 1e-9)
}

func TestSplitEfficiency(t *testing.T) {
	passes := []Pass{
		{ReviewerID: "rev-a", Score: 0.9, Weight: 1.0},
		{ReviewerID: "rev-b", Score: 0.8, Weight: 0.7},
		{ReviewerID: "rev-c", Score: 0.6, Weight: 0.49},
	}
	res, err := Split(baseParams(), "worker-1", passes)
	require.NoError(t, err)

	sum := res.WorkerShare
	for _, s := range res.ReviewerShares {
		sum += s
	}
	assert.InDelta(t, res.Pool, sum, 0.001, "shares must sum to the pool exactly")
}

func TestSplitNullReviewer(t *testing.T) {
	// A zero-weight pass contributes nothing and its reviewer earns nothing.
	passes := []Pass{
		{ReviewerID: "rev-a", Score: 0.9, Weight: 1.0},
		{ReviewerID: "rev-null", Score: 1.0, Weight: 0.0},
	}
	res, err := Split(baseParams(), "worker-1", passes)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.ReviewerShares["rev-null"], 0.001)
}

func TestSplitSymmetry(t *testing.T) {
	// Two reviewers with identical weight and score must earn the same.
	passes := []Pass{
		{ReviewerID: "rev-a", Score: 0.8, Weight: 0.5},
		{ReviewerID: "rev-b", Score: 0.8, Weight: 0.5},
	}
	res, err := Split(baseParams(), "worker-1", passes)
	require.NoError(t, err)
	assert.InDelta(t, res.ReviewerShares["rev-a"], res.ReviewerShares["rev-b"], 0.011)
}

func TestSplitOrderInvariance(t *testing.T) {
	a := []Pass{
		{ReviewerID: "rev-a", Score: 0.9, Weight: 1.0},
		{ReviewerID: "rev-b", Score: 0.4, Weight: 0.7},
	}
	b := []Pass{
		{ReviewerID: "rev-b", Score: 0.4, Weight: 0.7},
		{ReviewerID: "rev-a", Score: 0.9, Weight: 1.0},
	}

	resA, err := Split(baseParams(), "worker-1", a)
	require.NoError(t, err)
	resB, err := Split(baseParams(), "worker-1", b)
	require.NoError(t, err)

	assert.InDelta(t, resA.WorkerShare, resB.WorkerShare, 1e-9)
	assert.InDelta(t, resA.ReviewerShares["rev-a"], resB.ReviewerShares["rev-a"], 1e-9)
	assert.InDelta(t, resA.ReviewerShares["rev-b"], resB.ReviewerShares["rev-b"], 1e-9)
}

func TestSplitWorkerKeepsMajority(t *testing.T) {
	// Reviewers refine the quality estimate; they should not out-earn the
	// worker under ordinary parameters.
	passes := []Pass{
		{ReviewerID: "rev-a", Score: 1.0, Weight: 1.0},
		{ReviewerID: "rev-b", Score: 1.0, Weight: 0.7},
	}
	res, err := Split(baseParams(), "worker-1", passes)
	require.NoError(t, err)
	for r, share := range res.ReviewerShares {
		assert.Less(t, share, res.WorkerShare, "reviewer %s out-earned the worker", r)
	}
}

func TestSplitHighScoresRaisePool(t *testing.T) {
	low, err := Split(baseParams(), "worker-1", []Pass{{ReviewerID: "rev-a", Score: 0.1, Weight: 1.0}})
	require.NoError(t, err)
	high, err := Split(baseParams(), "worker-1", []Pass{{ReviewerID: "rev-a", Score: 0.9, Weight: 1.0}})
	require.NoError(t, err)
	assert.Greater(t, high.Pool, low.Pool)
	assert.Greater(t, high.Quality, low.Quality)
}

func TestSplitRejectsInvalidInput(t *testing.T) {
	_, err := Split(baseParams(), "", nil)
	assert.Error(t, err, "missing worker")

	_, err = Split(baseParams(), "worker-1", []Pass{{ReviewerID: "worker-1", Score: 0.5, Weight: 1}})
	assert.Error(t, err, "self-review")

	_, err = Split(baseParams(), "worker-1", []Pass{{ReviewerID: "rev-a", Score: 1.5, Weight: 1}})
	assert.Error(t, err, "score out of range")

	tooMany := make([]Pass, 5)
	for i := range tooMany {
		tooMany[i] = Pass{ReviewerID: "rev-a", Score: 0.5, Weight: 1}
	}
	_, err = Split(baseParams(), "worker-1", tooMany)
	assert.Error(t, err, "pass count above K")
}

func TestSplitPoolsPassesPerReviewer(t *testing.T) {
	// The same reviewer doing two passes is a single player: their share must
	// exceed what either pass alone would earn but the split remains efficient.
	passes := []Pass{
		{ReviewerID: "rev-a", Score: 0.9, Weight: 1.0},
		{ReviewerID: "rev-a", Score: 0.8, Weight: 0.7},
	}
	res, err := Split(baseParams(), "worker-1", passes)
	require.NoError(t, err)
	assert.Len(t, res.ReviewerShares, 1)

	sum := res.WorkerShare + res.ReviewerShares["rev-a"]
	assert.InDelta(t, res.Pool, sum, 0.001)
}

func TestSharesAreCents(t *testing.T) {
	passes := []Pass{
		{ReviewerID: "rev-a", Score: 0.77, Weight: 0.93},
		{ReviewerID: "rev-b", Score: 0.31, Weight: 0.41},
	}
	res, err := Split(baseParams(), "worker-1", passes)
	require.NoError(t, err)

	isCents := func(x float64) bool {
		scaled := x * 100
		return math.Abs(scaled-math.Round(scaled)) < 1e-6
	}
	assert.True(t, isCents(res.Pool))
	assert.True(t, isCents(res.WorkerShare))
	for _, s := range res.ReviewerShares {
		assert.True(t, isCents(s))
	}
}
