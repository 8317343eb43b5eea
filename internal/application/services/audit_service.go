package services

import (
	"context"
	"log"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/utils"
)

// AuditService records security-relevant actions. Recording never fails the
// calling operation; a lost audit row is logged, not propagated.
type AuditService struct {
	repo *persistence.AuditRepository
}

func NewAuditService(repo *persistence.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log writes one audit row.
func (s *AuditService) Log(ctx context.Context, orgID, actorID, action, objectType, objectID, detail string) {
	entry := &models.AuditLog{
		ID:             utils.GenerateID(),
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		ObjectType:     objectType,
		ObjectID:       objectID,
		Detail:         detail,
	}
	if err := s.repo.Record(ctx, nil, entry); err != nil {
		log.Printf("⚠️ Failed to record audit entry %s on %s/%s: %v", action, objectType, objectID, err)
	}
}

// List returns filtered audit entries, newest first. Admin only; the handler
// enforces the role.
func (s *AuditService) List(ctx context.Context, filter persistence.AuditFilter) ([]*models.AuditLog, error) {
	return s.repo.List(ctx, filter)
}
