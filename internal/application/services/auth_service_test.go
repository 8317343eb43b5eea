package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	apperrors "github.com/orbitapp/backend/pkg/errors"
)

func newAuthService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewAuthService(
		persistence.NewUserRepository(db),
		persistence.NewSessionRepository(db),
		NewAuditService(persistence.NewAuditRepository(db)))
	return svc, mock
}

func userWithPasswordRows(hash string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "name", "first_name", "last_name", "role", "is_active",
		"r", "r_min", "r_max", "base_salary", "last_login_at", "created_at", "updated_at",
		"password",
	}).AddRow(
		"u1", "dana@example.com", "Dana Reyes", "Dana", "Reyes", "employee", active,
		0.5, 0.0, 1.0, 4000.0, nil, now, now,
		hash)
}

func TestAuthService_Login(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := auth.HashPassword("CorrectHorse9")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("dana@example.com").
		WillReturnRows(userWithPasswordRows(hash, true))
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET last_login_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Login(context.Background(), "dana@example.com", "CorrectHorse9", "203.0.113.9", "go-test")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "dana@example.com", result.User.Email)

	claims, err := auth.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.User.ID)
	assert.Equal(t, "employee", claims.User.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := auth.HashPassword("CorrectHorse9")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("dana@example.com").
		WillReturnRows(userWithPasswordRows(hash, true))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err = svc.Login(context.Background(), "dana@example.com", "not-the-password", "203.0.113.9", "go-test")
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetHTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Unknown email and wrong password must be indistinguishable to the caller.
func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	hash, err := auth.HashPassword("CorrectHorse9")
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("dana@example.com").
		WillReturnRows(userWithPasswordRows(hash, true))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, unknownErr := svc.Login(context.Background(), "nobody@example.com", "whatever", "203.0.113.9", "go-test")
	require.Error(t, unknownErr)
	_, badPassErr := svc.Login(context.Background(), "dana@example.com", "whatever", "203.0.113.9", "go-test")
	require.Error(t, badPassErr)

	assert.Equal(t, 401, apperrors.GetHTTPStatus(unknownErr))
	assert.Equal(t, unknownErr.Error(), badPassErr.Error())
}

func TestAuthService_Login_DeactivatedAccount(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := auth.HashPassword("CorrectHorse9")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("dana@example.com").
		WillReturnRows(userWithPasswordRows(hash, false))

	_, err = svc.Login(context.Background(), "dana@example.com", "CorrectHorse9", "203.0.113.9", "go-test")
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetHTTPStatus(err))
}

func TestAuthService_Validate_RevokedSession(t *testing.T) {
	svc, mock := newAuthService(t)

	token, err := auth.GenerateToken(auth.UserSession{ID: "u1", Name: "Dana Reyes", Email: "dana@example.com", Role: "employee"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT is_revoked FROM sessions").
		WillReturnRows(sqlmock.NewRows([]string{"is_revoked"}).AddRow(true))

	_, err = svc.Validate(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetHTTPStatus(err))
}

func TestAuthService_Validate(t *testing.T) {
	svc, mock := newAuthService(t)

	token, err := auth.GenerateToken(auth.UserSession{ID: "u1", Name: "Dana Reyes", Email: "dana@example.com", Role: "employee"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT is_revoked FROM sessions").
		WillReturnRows(sqlmock.NewRows([]string{"is_revoked"}).AddRow(false))
	mock.ExpectExec("UPDATE sessions SET last_activity").
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", session.ID)
	assert.Equal(t, "dana@example.com", session.Email)
}

func TestAuthService_Validate_GarbageToken(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Validate(context.Background(), "not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetHTTPStatus(err))
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := auth.HashPassword("OldSecret77")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, password FROM users").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password"}).AddRow("u1", hash))
	mock.ExpectExec("UPDATE users SET password").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET is_revoked").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = svc.ChangePassword(context.Background(), "u1", "OldSecret77", "NewSecret88")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_ChangePassword_WrongCurrent(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := auth.HashPassword("OldSecret77")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, password FROM users").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password"}).AddRow("u1", hash))

	err = svc.ChangePassword(context.Background(), "u1", "guess", "NewSecret88")
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetHTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_ChangePassword_WeakNew(t *testing.T) {
	svc, _ := newAuthService(t)

	err := svc.ChangePassword(context.Background(), "u1", "OldSecret77", "short")
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatus(err))
}
