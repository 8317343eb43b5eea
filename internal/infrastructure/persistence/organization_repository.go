package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type OrganizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts an organization. The caller may pass a transaction so the
// owner membership lands atomically with the organization row.
func (r *OrganizationRepository) Create(ctx context.Context, exec Execer, org *models.Organization) error {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, slug, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())`,
		constants.TableOrganization)
	_, err := exec.ExecContext(ctx, query, org.ID, org.Name, org.Slug, org.OwnerID)
	return err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := fmt.Sprintf("SELECT id, name, slug, owner_id, created_at, updated_at FROM %s WHERE id = ? LIMIT 1",
		constants.TableOrganization)

	var org models.Organization
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE slug = ?)", constants.TableOrganization)
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&exists)
	return exists, err
}

func (r *OrganizationRepository) UpdateName(ctx context.Context, id, name string) error {
	query := fmt.Sprintf("UPDATE %s SET name = ?, updated_at = NOW() WHERE id = ?", constants.TableOrganization)
	_, err := r.db.ExecContext(ctx, query, name, id)
	return err
}

// ListForUser returns every organization the user belongs to, owner first.
func (r *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]*models.Organization, error) {
	query := fmt.Sprintf(`
		SELECT o.id, o.name, o.slug, o.owner_id, o.created_at, o.updated_at
		FROM %s o
		JOIN %s m ON m.organization_id = o.id
		WHERE m.user_id = ?
		ORDER BY (o.owner_id = ?) DESC, o.created_at ASC`,
		constants.TableOrganization, constants.TableTeamMember)

	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := make([]*models.Organization, 0)
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

// AddMember adds a user to an organization with an org-scoped role.
func (r *OrganizationRepository) AddMember(ctx context.Context, exec Execer, m *models.TeamMember) error {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, organization_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, NOW())`,
		constants.TableTeamMember)
	_, err := exec.ExecContext(ctx, query, m.ID, m.OrganizationID, m.UserID, m.Role)
	return err
}

func (r *OrganizationRepository) RemoveMember(ctx context.Context, orgID, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE organization_id = ? AND user_id = ?", constants.TableTeamMember)
	_, err := r.db.ExecContext(ctx, query, orgID, userID)
	return err
}

func (r *OrganizationRepository) UpdateMemberRole(ctx context.Context, orgID, userID, role string) error {
	query := fmt.Sprintf("UPDATE %s SET role = ? WHERE organization_id = ? AND user_id = ?", constants.TableTeamMember)
	_, err := r.db.ExecContext(ctx, query, role, orgID, userID)
	return err
}

// GetMemberRole returns the user's org-scoped role, or "" when not a member.
func (r *OrganizationRepository) GetMemberRole(ctx context.Context, orgID, userID string) (string, error) {
	var role string
	query := fmt.Sprintf("SELECT role FROM %s WHERE organization_id = ? AND user_id = ? LIMIT 1",
		constants.TableTeamMember)
	err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return role, err
}

// ListMembers returns org members joined with user name and email.
func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID string) ([]*models.TeamMember, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.organization_id, m.user_id, m.role, m.joined_at, u.name, u.email
		FROM %s m
		JOIN %s u ON u.id = m.user_id
		WHERE m.organization_id = ?
		ORDER BY m.joined_at ASC`,
		constants.TableTeamMember, constants.TableUser)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.TeamMember, 0)
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.JoinedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// MemberUserIDs returns the IDs of every member, used for fan-out
// notifications.
func (r *OrganizationRepository) MemberUserIDs(ctx context.Context, orgID string) ([]string, error) {
	query := fmt.Sprintf("SELECT user_id FROM %s WHERE organization_id = ?", constants.TableTeamMember)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
