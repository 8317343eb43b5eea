package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "party_a_id", "party_b_email", "party_b_user_id",
		"title", "body", "pdf_path", "status", "sign_token", "sign_token_expires_at",
		"submit_token", "signed_at", "signer_name", "signer_ip", "created_at", "updated_at",
	}).AddRow("c-1", "org-1", "u-1", "contractor@ext.dev", nil,
		"NDA", "body text", nil, "pending_signature", "tok-abc", now.Add(24*time.Hour),
		nil, nil, nil, nil, now, now)
}

func TestContractRepository_GetBySignToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContractRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT .+ FROM contracts WHERE sign_token").
		WithArgs("tok-abc").
		WillReturnRows(contractRows(now))

	c, err := repo.GetBySignToken(context.Background(), "tok-abc")
	assert.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "pending_signature", c.Status)
	assert.Equal(t, "tok-abc", c.SignToken)
	require.NotNil(t, c.SignTokenExpiresAt)

	mock.ExpectQuery("SELECT .+ FROM contracts WHERE sign_token").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, err = repo.GetBySignToken(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_UpdateStatusIf(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContractRepository(db)

	t.Run("transition wins", func(t *testing.T) {
		mock.ExpectExec("UPDATE contracts SET status").
			WithArgs("active", "Ana Silva", "c-1", "pending_signature").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateStatusIf(context.Background(), "c-1",
			"pending_signature", "active", map[string]interface{}{"signer_name": "Ana Silva"})
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale transition loses", func(t *testing.T) {
		mock.ExpectExec("UPDATE contracts SET status").
			WithArgs("active", "c-1", "pending_signature").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.UpdateStatusIf(context.Background(), "c-1",
			"pending_signature", "active", nil)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_ExpirePendingBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContractRepository(db)
	cutoff := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM contracts WHERE status = ? AND sign_token_expires_at < ?")).
		WithArgs("pending_signature", cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1").AddRow("c-2"))

	mock.ExpectExec("UPDATE contracts SET status").
		WithArgs("draft", "pending_signature", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	ids, err := repo.ExpirePendingBefore(context.Background(), cutoff)
	assert.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
