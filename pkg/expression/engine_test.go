package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsEnv() map[string]interface{} {
	return map[string]interface{}{
		"stats": map[string]interface{}{
			"tasks_completed":     52,
			"qc_pass_rate":        0.93,
			"total_earned":        12500.0,
			"current_streak_days": 7,
			"contracts_signed":    2,
		},
	}
}

func TestEvaluateBadgeCriteria(t *testing.T) {
	e := NewEngine()

	met, err := e.EvaluateBool("stats.tasks_completed >= 50 && stats.qc_pass_rate > 0.9", statsEnv())
	require.NoError(t, err)
	assert.True(t, met)

	met, err = e.EvaluateBool("stats.total_earned > 100000", statsEnv())
	require.NoError(t, err)
	assert.False(t, met)
}

func TestEvaluateBoolRejectsNonBool(t *testing.T) {
	e := NewEngine()
	_, err := e.EvaluateBool("stats.tasks_completed + 1", statsEnv())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	e := NewEngine()
	assert.NoError(t, e.Validate("stats.tasks_completed >= 10"))
	assert.Error(t, e.Validate("stats.tasks_completed >== 10"))
}

func TestUndefinedVariablesEvaluateAgainstNil(t *testing.T) {
	// Routing rules reference event fields that not every event carries;
	// missing names must not blow up evaluation.
	e := NewEngine()
	met, err := e.EvaluateBool("kind == 'payout_created'", map[string]interface{}{"kind": "task_assigned"})
	require.NoError(t, err)
	assert.False(t, met)
}

func TestProgramCacheReturnsStableResults(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 3; i++ {
		met, err := e.EvaluateBool("stats.current_streak_days >= 7", statsEnv())
		require.NoError(t, err)
		assert.True(t, met)
	}
}
