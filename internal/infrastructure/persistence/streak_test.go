package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0, countStreakAt(nil, now))
	})

	t.Run("single day today", func(t *testing.T) {
		assert.Equal(t, 1, countStreakAt([]string{"2026-03-10"}, now))
	})

	t.Run("streak ending yesterday still counts", func(t *testing.T) {
		assert.Equal(t, 3, countStreakAt([]string{"2026-03-09", "2026-03-08", "2026-03-07"}, now))
	})

	t.Run("gap breaks streak", func(t *testing.T) {
		assert.Equal(t, 2, countStreakAt([]string{"2026-03-10", "2026-03-09", "2026-03-07"}, now))
	})

	t.Run("stale streak is zero", func(t *testing.T) {
		assert.Equal(t, 0, countStreakAt([]string{"2026-03-01", "2026-02-28"}, now))
	})
}
