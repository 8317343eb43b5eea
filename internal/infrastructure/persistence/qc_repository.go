package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type QCRepository struct {
	db *sql.DB
}

func NewQCRepository(db *sql.DB) *QCRepository {
	return &QCRepository{db: db}
}

// Create inserts a review pass. The caller assigns PassNumber; the unique
// index on (task_id, pass_number) rejects duplicate sequencing under races.
func (r *QCRepository) Create(ctx context.Context, exec Execer, review *models.QCReview) error {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, task_id, reviewer_id, pass_number, score, weight, passed, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())`,
		constants.TableQCReview)
	_, err := exec.ExecContext(ctx, query,
		review.ID, review.TaskID, review.ReviewerID, review.PassNumber,
		review.Score, review.Weight, review.Passed, review.Notes)
	return err
}

// NextPassNumber returns MAX(pass_number)+1 for a task, starting at 1.
func (r *QCRepository) NextPassNumber(ctx context.Context, taskID string) (int, error) {
	var maxPass sql.NullInt64
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s WHERE %s = ?",
		constants.FieldQCPassNumber, constants.TableQCReview, constants.FieldTaskID)
	if err := r.db.QueryRowContext(ctx, query, taskID).Scan(&maxPass); err != nil {
		return 0, err
	}
	return int(maxPass.Int64) + 1, nil
}

// ListByTask returns all review passes for a task in pass order.
func (r *QCRepository) ListByTask(ctx context.Context, taskID string) ([]*models.QCReview, error) {
	query := fmt.Sprintf(`
		SELECT id, task_id, reviewer_id, pass_number, score, weight, passed, notes, created_at
		FROM %s WHERE task_id = ? ORDER BY pass_number ASC`,
		constants.TableQCReview)

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]*models.QCReview, 0)
	for rows.Next() {
		var rev models.QCReview
		var notes sql.NullString
		if err := rows.Scan(&rev.ID, &rev.TaskID, &rev.ReviewerID, &rev.PassNumber,
			&rev.Score, &rev.Weight, &rev.Passed, &notes, &rev.CreatedAt); err != nil {
			return nil, err
		}
		rev.Notes = notes.String
		reviews = append(reviews, &rev)
	}
	return reviews, rows.Err()
}

// PassRateForReviewer returns the fraction of a reviewer's passes marked
// passed, or 0 when they have reviewed nothing.
func (r *QCRepository) PassRateForReviewer(ctx context.Context, reviewerID string) (float64, error) {
	var total, passed int
	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(passed), 0) FROM %s WHERE reviewer_id = ?",
		constants.TableQCReview)
	if err := r.db.QueryRowContext(ctx, query, reviewerID).Scan(&total, &passed); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(passed) / float64(total), nil
}

// PassRateForWorker returns the fraction of reviews on the user's tasks that
// passed, for badge stats.
func (r *QCRepository) PassRateForWorker(ctx context.Context, userID string) (float64, error) {
	var total, passed int
	query := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(q.passed), 0)
		FROM %s q JOIN %s t ON t.id = q.task_id
		WHERE t.assignee_id = ?`,
		constants.TableQCReview, constants.TableTask)
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total, &passed); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(passed) / float64(total), nil
}
