package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, recipient_id, title, body, link, kind, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW())`,
		constants.TableNotification)
	_, err := r.db.ExecContext(ctx, query, n.ID, n.RecipientID, n.Title, n.Body, n.Link, n.Kind)
	return err
}

// ListForUser returns the newest notifications for a user, capped.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > constants.NotificationListCap {
		limit = constants.NotificationListCap
	}

	filter := ""
	if unreadOnly {
		filter = " AND is_read = 0"
	}
	query := fmt.Sprintf(`
		SELECT id, recipient_id, title, body, link, kind, is_read, created_at
		FROM %s WHERE recipient_id = ?%s
		ORDER BY created_at DESC LIMIT %d`,
		constants.TableNotification, filter, limit)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		var link sql.NullString
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Body, &link, &n.Kind, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Link = link.String
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead flags one notification read. Scoped to the recipient so users
// cannot touch each other's inboxes.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, userID string) (bool, error) {
	query := fmt.Sprintf("UPDATE %s SET is_read = 1 WHERE id = ? AND recipient_id = ?",
		constants.TableNotification)
	res, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET is_read = 1 WHERE recipient_id = ? AND is_read = 0",
		constants.TableNotification)
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE recipient_id = ? AND is_read = 0",
		constants.TableNotification)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&n)
	return n, err
}
