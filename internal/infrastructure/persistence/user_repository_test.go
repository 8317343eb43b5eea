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

func TestUserRepository_GetUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "email", "name", "first_name", "last_name", "role", "is_active",
			"r", "r_min", "r_max", "base_salary", "last_login_at", "created_at", "updated_at",
		}).AddRow("u-1", "ana@orbit.dev", "Ana", "Ana", "Silva", "employee", true,
			0.5, 0.0, 1.0, 4000.0, nil, now, now)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, first_name, last_name, role, is_active, r, r_min, r_max, base_salary, last_login_at, created_at, updated_at FROM users WHERE email = ? LIMIT 1")).
			WithArgs("ana@orbit.dev").
			WillReturnRows(rows)

		user, err := repo.GetUserByEmail(context.Background(), "ana@orbit.dev")
		assert.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "u-1", user.ID)
		assert.Equal(t, "employee", user.Role)
		assert.Equal(t, 0.5, user.R)
		assert.Nil(t, user.LastLoginAt)
	})

	t.Run("not found returns nil without error", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM users WHERE email").
			WithArgs("nobody@orbit.dev").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		user, err := repo.GetUserByEmail(context.Background(), "nobody@orbit.dev")
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindUserByEmailWithPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "email", "name", "first_name", "last_name", "role", "is_active",
		"r", "r_min", "r_max", "base_salary", "last_login_at", "created_at", "updated_at", "password",
	}).AddRow("u-1", "ana@orbit.dev", "Ana", nil, nil, "admin", true,
		0.5, 0.0, 1.0, 0.0, now, now, now, "$2a$10$hash")

	mock.ExpectQuery("SELECT .+, password FROM users WHERE email").
		WithArgs("ana@orbit.dev").
		WillReturnRows(rows)

	result, err := repo.FindUserByEmailWithPassword(context.Background(), "ana@orbit.dev")
	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "$2a$10$hash", result.PasswordHash)
	require.NotNil(t, result.LastLoginAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("u-9", "new@orbit.dev", "New User", "New", "User", "$2a$10$hash", "contractor", true,
			0.5, 0.0, 1.0, 0.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	u := newTestUser("u-9", "new@orbit.dev", "contractor")
	err = repo.CreateUser(context.Background(), u, "$2a$10$hash")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = 0, updated_at = NOW() WHERE id = ?")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Deactivate(context.Background(), "u-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
