package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityValidator_Validate(t *testing.T) {
	v := NewSecurityValidator()

	t.Run("plain select passes", func(t *testing.T) {
		assert.NoError(t, v.Validate("SELECT status, COUNT(*) FROM tasks GROUP BY status"))
	})

	t.Run("join over allowed tables passes", func(t *testing.T) {
		assert.NoError(t, v.Validate(
			"SELECT p.name, SUM(po.amount) FROM payouts po JOIN projects p ON p.id = po.project_id GROUP BY p.name"))
	})

	t.Run("empty query rejected", func(t *testing.T) {
		assert.Error(t, v.Validate("   "))
	})

	t.Run("insert rejected", func(t *testing.T) {
		err := v.Validate("INSERT INTO tasks (id) VALUES ('x')")
		assert.ErrorContains(t, err, "only SELECT")
	})

	t.Run("update rejected", func(t *testing.T) {
		assert.Error(t, v.Validate("UPDATE users SET role = 'admin'"))
	})

	t.Run("drop rejected", func(t *testing.T) {
		assert.Error(t, v.Validate("DROP TABLE payouts"))
	})

	t.Run("multiple statements rejected", func(t *testing.T) {
		err := v.Validate("SELECT 1 FROM tasks; SELECT 2 FROM tasks")
		assert.ErrorContains(t, err, "one statement")
	})

	t.Run("sessions table rejected", func(t *testing.T) {
		err := v.Validate("SELECT token FROM sessions")
		assert.ErrorContains(t, err, "not queryable")
	})

	t.Run("outbox table rejected even inside subquery", func(t *testing.T) {
		err := v.Validate("SELECT * FROM tasks WHERE id IN (SELECT id FROM outbox_events)")
		assert.ErrorContains(t, err, "not queryable")
	})

	t.Run("select without a table rejected", func(t *testing.T) {
		assert.Error(t, v.Validate("SELECT 1"))
	})

	t.Run("syntax error reported", func(t *testing.T) {
		err := v.Validate("SELEC * FORM tasks")
		assert.ErrorContains(t, err, "syntax")
	})
}

func TestSecurityValidator_EnforceLimit(t *testing.T) {
	v := NewSecurityValidator()

	wrapped := v.EnforceLimit("SELECT id FROM tasks;", 100)
	assert.Equal(t, "SELECT * FROM (SELECT id FROM tasks) AS q LIMIT 100", wrapped)

	wrapped = v.EnforceLimit("SELECT id FROM tasks", 0)
	assert.Contains(t, wrapped, "LIMIT 200")
}
