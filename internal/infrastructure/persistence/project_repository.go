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

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = "id, organization_id, name, description, status, manager_id, budget, created_at, updated_at"

func scanProject(scan func(dest ...interface{}) error) (*models.Project, error) {
	var p models.Project
	var description sql.NullString

	err := scan(&p.ID, &p.OrganizationID, &p.Name, &description, &p.Status, &p.ManagerID,
		&p.Budget, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	return &p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, organization_id, name, description, status, manager_id, budget, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		constants.TableProject)
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OrganizationID, p.Name, p.Description, p.Status, p.ManagerID, p.Budget)
	return err
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", projectColumns, constants.TableProject)
	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProject(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *ProjectRepository) Update(ctx context.Context, projectID string, updates map[string]interface{}) error {
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
		constants.TableProject, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, projectID)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListByOrganization returns the org's projects, newest first. Archived
// projects are included; the caller filters if it wants active only.
func (r *ProjectRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE organization_id = ? ORDER BY created_at DESC",
		projectColumns, constants.TableProject)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListVisibleToUser returns projects the user manages, has an access grant
// on, or has an assigned task in.
func (r *ProjectRepository) ListVisibleToUser(ctx context.Context, orgID, userID string) ([]*models.Project, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT p.id, p.organization_id, p.name, p.description, p.status, p.manager_id, p.budget, p.created_at, p.updated_at
		FROM %s p
		LEFT JOIN %s pa ON pa.project_id = p.id AND pa.user_id = ?
		LEFT JOIN %s t ON t.project_id = p.id AND t.assignee_id = ?
		WHERE p.organization_id = ? AND (p.manager_id = ? OR pa.id IS NOT NULL OR t.id IS NOT NULL)
		ORDER BY p.created_at DESC`,
		constants.TableProject, constants.TableProjectAccess, constants.TableTask)

	rows, err := r.db.QueryContext(ctx, query, userID, userID, orgID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GrantAccess upserts a project access grant.
func (r *ProjectRepository) GrantAccess(ctx context.Context, a *models.ProjectAccess) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, user_id, level, created_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE level = VALUES(level)`,
		constants.TableProjectAccess)
	_, err := r.db.ExecContext(ctx, query, a.ID, a.ProjectID, a.UserID, a.Level)
	return err
}

func (r *ProjectRepository) RevokeAccess(ctx context.Context, projectID, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE project_id = ? AND user_id = ?", constants.TableProjectAccess)
	_, err := r.db.ExecContext(ctx, query, projectID, userID)
	return err
}

// GetAccessLevel returns the user's level on a project, or "" when none.
func (r *ProjectRepository) GetAccessLevel(ctx context.Context, projectID, userID string) (string, error) {
	var level string
	query := fmt.Sprintf("SELECT level FROM %s WHERE project_id = ? AND user_id = ? LIMIT 1",
		constants.TableProjectAccess)
	err := r.db.QueryRowContext(ctx, query, projectID, userID).Scan(&level)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return level, err
}

func (r *ProjectRepository) ListAccess(ctx context.Context, projectID string) ([]*models.ProjectAccess, error) {
	query := fmt.Sprintf("SELECT id, project_id, user_id, level, created_at FROM %s WHERE project_id = ? ORDER BY created_at ASC",
		constants.TableProjectAccess)

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := make([]*models.ProjectAccess, 0)
	for rows.Next() {
		var a models.ProjectAccess
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.Level, &a.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, &a)
	}
	return grants, rows.Err()
}
