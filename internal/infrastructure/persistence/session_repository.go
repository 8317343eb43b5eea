package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession records a login session keyed by the JWT ID.
func (r *SessionRepository) CreateSession(ctx context.Context, s *models.Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, token, ip_address, user_agent, is_revoked, expires_at, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, NOW(), NOW())`,
		constants.TableSession)

	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.Token, s.IPAddress, s.UserAgent, s.ExpiresAt)
	return err
}

// IsRevoked reports whether the session with the given JWT ID has been
// revoked or is missing. Unknown sessions count as revoked.
func (r *SessionRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		constants.FieldSessionIsRevoked, constants.TableSession, constants.FieldID)
	err := r.db.QueryRowContext(ctx, query, jti).Scan(&revoked)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return revoked, nil
}

// Revoke invalidates a single session.
func (r *SessionRepository) Revoke(ctx context.Context, jti string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s = ?",
		constants.TableSession, constants.FieldSessionIsRevoked, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, jti)
	return err
}

// RevokeAllForUser invalidates every session of a user, used when the
// password changes or an admin deactivates the account.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s = ?",
		constants.TableSession, constants.FieldSessionIsRevoked, constants.FieldUserID)
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// TouchActivity bumps last_activity; failures are tolerated by callers.
func (r *SessionRepository) TouchActivity(ctx context.Context, jti string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = NOW() WHERE %s = ?",
		constants.TableSession, constants.FieldSessionLastActivity, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, jti)
	return err
}

// DeleteExpired removes sessions past their expiry. Called by the scheduler.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s < ?",
		constants.TableSession, constants.FieldSessionExpiresAt)
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
