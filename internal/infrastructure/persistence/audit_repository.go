package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, exec Execer, entry *models.AuditLog) error {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, organization_id, actor_id, action, object_type, object_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW())`,
		constants.TableAuditLog)
	_, err := exec.ExecContext(ctx, query,
		entry.ID, nullString(entry.OrganizationID), entry.ActorID, entry.Action,
		entry.ObjectType, nullString(entry.ObjectID), nullString(entry.Detail))
	return err
}

// AuditFilter narrows the audit listing. Zero values are ignored.
type AuditFilter struct {
	OrganizationID string
	ActorID        string
	Action         string
	ObjectType     string
	Limit          int
}

func (r *AuditRepository) List(ctx context.Context, filter AuditFilter) ([]*models.AuditLog, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ObjectType != "" {
		where = append(where, "object_type = ?")
		args = append(args, filter.ObjectType)
	}

	limit := filter.Limit
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	query := fmt.Sprintf(`
		SELECT id, organization_id, actor_id, action, object_type, object_id, detail, created_at
		FROM %s WHERE %s ORDER BY created_at DESC LIMIT %d`,
		constants.TableAuditLog, strings.Join(where, " AND "), limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)
	for rows.Next() {
		var e models.AuditLog
		var orgID, objectID, detail sql.NullString
		if err := rows.Scan(&e.ID, &orgID, &e.ActorID, &e.Action, &e.ObjectType, &objectID, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OrganizationID = orgID.String
		e.ObjectID = objectID.String
		e.Detail = detail.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
