package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type GuestRepository struct {
	db *sql.DB
}

func NewGuestRepository(db *sql.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// CreateProject inserts a guest workspace and its seed tasks inside the
// caller's transaction.
func (r *GuestRepository) CreateProject(ctx context.Context, exec Execer, p *models.GuestProject, tasks []*models.GuestTask) error {
	if exec == nil {
		exec = r.db
	}

	projectQuery := fmt.Sprintf(`
		INSERT INTO %s (id, session_token, name, description, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		constants.TableGuestProject)
	if _, err := exec.ExecContext(ctx, projectQuery,
		p.ID, p.SessionToken, p.Name, p.Description, p.ExpiresAt); err != nil {
		return err
	}

	taskQuery := fmt.Sprintf(`
		INSERT INTO %s (id, guest_project_id, title, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())`,
		constants.TableGuestTask)
	for _, t := range tasks {
		if _, err := exec.ExecContext(ctx, taskQuery, t.ID, t.GuestProjectID, t.Title, t.Status); err != nil {
			return err
		}
	}
	return nil
}

// GetProjectByToken fetches a guest project by its session token, expired or
// not; the service decides whether to serve it or report it gone.
func (r *GuestRepository) GetProjectByToken(ctx context.Context, token string) (*models.GuestProject, error) {
	query := fmt.Sprintf(`
		SELECT id, session_token, name, description, expires_at, created_at
		FROM %s WHERE session_token = ? LIMIT 1`,
		constants.TableGuestProject)

	var p models.GuestProject
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&p.ID, &p.SessionToken, &p.Name, &description, &p.ExpiresAt, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	return &p, nil
}

func (r *GuestRepository) ListTasks(ctx context.Context, guestProjectID string) ([]*models.GuestTask, error) {
	query := fmt.Sprintf(`
		SELECT id, guest_project_id, title, status, created_at, updated_at
		FROM %s WHERE guest_project_id = ? ORDER BY created_at ASC`,
		constants.TableGuestTask)

	rows, err := r.db.QueryContext(ctx, query, guestProjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.GuestTask, 0)
	for rows.Next() {
		var t models.GuestTask
		if err := rows.Scan(&t.ID, &t.GuestProjectID, &t.Title, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (r *GuestRepository) CreateTask(ctx context.Context, t *models.GuestTask) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, guest_project_id, title, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())`,
		constants.TableGuestTask)
	_, err := r.db.ExecContext(ctx, query, t.ID, t.GuestProjectID, t.Title, t.Status)
	return err
}

// UpdateTaskStatus moves a guest task, scoped to its project so one guest
// cannot reach into another's workspace.
func (r *GuestRepository) UpdateTaskStatus(ctx context.Context, guestProjectID, taskID, status string) (bool, error) {
	query := fmt.Sprintf("UPDATE %s SET status = ?, updated_at = NOW() WHERE id = ? AND guest_project_id = ?",
		constants.TableGuestTask)
	res, err := r.db.ExecContext(ctx, query, status, taskID, guestProjectID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpired removes expired guest workspaces and their tasks. Tasks go
// first so the sweep never strands orphans.
func (r *GuestRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	taskQuery := fmt.Sprintf(`
		DELETE t FROM %s t
		JOIN %s p ON p.id = t.guest_project_id
		WHERE p.expires_at < ?`,
		constants.TableGuestTask, constants.TableGuestProject)
	if _, err := r.db.ExecContext(ctx, taskQuery, now); err != nil {
		return 0, err
	}

	projectQuery := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", constants.TableGuestProject)
	res, err := r.db.ExecContext(ctx, projectQuery, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
