package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type PayoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// CreateBatch inserts a task's payouts inside the caller's transaction so the
// approval, the payouts and the outbox event commit together.
func (r *PayoutRepository) CreateBatch(ctx context.Context, exec Execer, payouts []*models.Payout) error {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, task_id, project_id, user_id, role, amount, quality, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())`,
		constants.TablePayout)

	for _, p := range payouts {
		if _, err := exec.ExecContext(ctx, query,
			p.ID, p.TaskID, p.ProjectID, p.UserID, p.Role, p.Amount, p.Quality, p.Status); err != nil {
			return err
		}
	}
	return nil
}

const payoutColumns = "id, task_id, project_id, user_id, role, amount, quality, status, released_at, created_at"

func scanPayout(scan func(dest ...interface{}) error) (*models.Payout, error) {
	var p models.Payout
	var releasedAt sql.NullTime

	err := scan(&p.ID, &p.TaskID, &p.ProjectID, &p.UserID, &p.Role,
		&p.Amount, &p.Quality, &p.Status, &releasedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if releasedAt.Valid {
		t := releasedAt.Time
		p.ReleasedAt = &t
	}
	return &p, nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", payoutColumns, constants.TablePayout)
	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanPayout(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PayoutRepository) ListByTask(ctx context.Context, taskID string) ([]*models.Payout, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE task_id = ? ORDER BY amount DESC",
		payoutColumns, constants.TablePayout)
	return r.queryPayouts(ctx, query, taskID)
}

func (r *PayoutRepository) ListByUser(ctx context.Context, userID string) ([]*models.Payout, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ? ORDER BY created_at DESC",
		payoutColumns, constants.TablePayout)
	return r.queryPayouts(ctx, query, userID)
}

func (r *PayoutRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Payout, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ? ORDER BY created_at DESC",
		payoutColumns, constants.TablePayout)
	return r.queryPayouts(ctx, query, projectID)
}

func (r *PayoutRepository) queryPayouts(ctx context.Context, query string, args ...interface{}) ([]*models.Payout, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]*models.Payout, 0)
	for rows.Next() {
		p, err := scanPayout(rows.Scan)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// Release marks a pending payout released. Returns false when the payout was
// not pending.
func (r *PayoutRepository) Release(ctx context.Context, payoutID string) (bool, error) {
	query := fmt.Sprintf("UPDATE %s SET status = ?, released_at = NOW() WHERE id = ? AND status = ?",
		constants.TablePayout)
	res, err := r.db.ExecContext(ctx, query, constants.PayoutReleased, payoutID, constants.PayoutPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TotalEarned sums a user's released payouts for stats and salary mix.
func (r *PayoutRepository) TotalEarned(ctx context.Context, userID string) (float64, error) {
	var total float64
	query := fmt.Sprintf("SELECT COALESCE(SUM(amount), 0) FROM %s WHERE user_id = ? AND status = ?",
		constants.TablePayout)
	err := r.db.QueryRowContext(ctx, query, userID, constants.PayoutReleased).Scan(&total)
	return total, err
}

// EarnedBetween sums a user's released payouts in a period, for the salary
// mix projection.
func (r *PayoutRepository) EarnedBetween(ctx context.Context, userID string, fromDate, toDate string) (float64, error) {
	var total float64
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(amount), 0) FROM %s
		WHERE user_id = ? AND status = ? AND released_at >= ? AND released_at < ?`,
		constants.TablePayout)
	err := r.db.QueryRowContext(ctx, query, userID, constants.PayoutReleased, fromDate, toDate).Scan(&total)
	return total, err
}
