package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = "id, project_id, title, description, status, assignee_id, value, v0, p0, beta, gamma, k, due_date, submitted_at, completed_at, created_at, updated_at"

func scanTask(scan func(dest ...interface{}) error) (*models.Task, error) {
	var t models.Task
	var description sql.NullString
	var assignee sql.NullString
	var dueDate, submittedAt, completedAt sql.NullTime

	err := scan(&t.ID, &t.ProjectID, &t.Title, &description, &t.Status, &assignee,
		&t.Value, &t.V0, &t.P0, &t.Beta, &t.Gamma, &t.K,
		&dueDate, &submittedAt, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	if assignee.Valid {
		s := assignee.String
		t.AssigneeID = &s
	}
	if dueDate.Valid {
		v := dueDate.Time
		t.DueDate = &v
	}
	if submittedAt.Valid {
		v := submittedAt.Time
		t.SubmittedAt = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, title, description, status, assignee_id, value, v0, p0, beta, gamma, k, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		constants.TableTask)
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.ProjectID, t.Title, t.Description, t.Status, t.AssigneeID,
		t.Value, t.V0, t.P0, t.Beta, t.Gamma, t.K, t.DueDate)
	return err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", taskColumns, constants.TableTask)
	row := r.db.QueryRowContext(ctx, query, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TaskRepository) Update(ctx context.Context, exec Execer, taskID string, updates map[string]interface{}) error {
	if exec == nil {
		exec = r.db
	}
	if len(updates) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{}
	for k, v := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, v)
	}
	setClauses = append(setClauses, fmt.Sprintf("%s = ?", constants.FieldUpdatedAt))
	args = append(args, time.Now())

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		constants.TableTask, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, taskID)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// UpdateStatusIf moves a task to a new status only if it is still in the
// expected one, guarding against concurrent transitions. Returns false when
// another writer won.
func (r *TaskRepository) UpdateStatusIf(ctx context.Context, exec Execer, taskID, from, to string) (bool, error) {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf("UPDATE %s SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?",
		constants.TableTask)
	res, err := exec.ExecContext(ctx, query, to, taskID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ? ORDER BY created_at DESC",
		taskColumns, constants.TableTask)
	return r.queryTasks(ctx, query, projectID)
}

func (r *TaskRepository) ListByAssignee(ctx context.Context, userID string) ([]*models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE assignee_id = ? ORDER BY created_at DESC",
		taskColumns, constants.TableTask)
	return r.queryTasks(ctx, query, userID)
}

func (r *TaskRepository) ListByStatus(ctx context.Context, projectID, status string) ([]*models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ? AND status = ? ORDER BY created_at DESC",
		taskColumns, constants.TableTask)
	return r.queryTasks(ctx, query, projectID, status)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GrantAccess upserts a task access grant.
func (r *TaskRepository) GrantAccess(ctx context.Context, a *models.TaskAccess) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, task_id, user_id, level, created_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE level = VALUES(level)`,
		constants.TableTaskAccess)
	_, err := r.db.ExecContext(ctx, query, a.ID, a.TaskID, a.UserID, a.Level)
	return err
}

func (r *TaskRepository) RevokeAccess(ctx context.Context, taskID, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE task_id = ? AND user_id = ?", constants.TableTaskAccess)
	_, err := r.db.ExecContext(ctx, query, taskID, userID)
	return err
}

// GetAccessLevel returns the user's level on a task, or "" when none.
func (r *TaskRepository) GetAccessLevel(ctx context.Context, taskID, userID string) (string, error) {
	var level string
	query := fmt.Sprintf("SELECT level FROM %s WHERE task_id = ? AND user_id = ? LIMIT 1",
		constants.TableTaskAccess)
	err := r.db.QueryRowContext(ctx, query, taskID, userID).Scan(&level)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return level, err
}

// CountCompletedByUser counts approved tasks for a user's stats.
func (r *TaskRepository) CountCompletedByUser(ctx context.Context, userID string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE assignee_id = ? AND status = ?", constants.TableTask)
	err := r.db.QueryRowContext(ctx, query, userID, string(constants.TaskApproved)).Scan(&n)
	return n, err
}
