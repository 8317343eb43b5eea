package services

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/utils"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// OrganizationService manages tenant workspaces and their membership.
type OrganizationService struct {
	orgs   *persistence.OrganizationRepository
	users  *persistence.UserRepository
	outbox *persistence.OutboxRepository
	tm     *persistence.TransactionManager
	audit  *AuditService
}

func NewOrganizationService(orgs *persistence.OrganizationRepository, users *persistence.UserRepository,
	outbox *persistence.OutboxRepository, tm *persistence.TransactionManager, audit *AuditService) *OrganizationService {
	return &OrganizationService{orgs: orgs, users: users, outbox: outbox, tm: tm, audit: audit}
}

// Slugify reduces a name to a URL-safe slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Create makes a new organization with the creator as owner and first member.
func (s *OrganizationService) Create(ctx context.Context, actor *auth.UserSession, name string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("name", "organization name is required")
	}

	slug := Slugify(name)
	if slug == "" {
		return nil, apperrors.NewValidationError("name", "name must contain letters or digits")
	}
	taken, err := s.orgs.SlugExists(ctx, slug)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check slug", err)
	}
	if taken {
		return nil, apperrors.NewConflictError("organization", "slug", slug)
	}

	org := &models.Organization{
		ID:      utils.GenerateID(),
		Name:    strings.TrimSpace(name),
		Slug:    slug,
		OwnerID: actor.ID,
	}

	err = s.tm.WithTransaction(func(tx *sql.Tx) error {
		if err := s.orgs.Create(ctx, tx, org); err != nil {
			return err
		}
		return s.orgs.AddMember(ctx, tx, &models.TeamMember{
			ID:             utils.GenerateID(),
			OrganizationID: org.ID,
			UserID:         actor.ID,
			Role:           string(constants.RoleAdmin),
		})
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create organization", err)
	}

	s.audit.Log(ctx, org.ID, actor.ID, "org.created", "organization", org.ID, org.Slug)
	return org, nil
}

func (s *OrganizationService) Get(ctx context.Context, actor *auth.UserSession, orgID string) (*models.Organization, error) {
	if err := s.RequireMember(ctx, actor, orgID); err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load organization", err)
	}
	if org == nil {
		return nil, apperrors.NewNotFoundError("organization", orgID)
	}
	return org, nil
}

func (s *OrganizationService) ListForUser(ctx context.Context, userID string) ([]*models.Organization, error) {
	return s.orgs.ListForUser(ctx, userID)
}

func (s *OrganizationService) Rename(ctx context.Context, actor *auth.UserSession, orgID, name string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("name", "organization name is required")
	}
	if err := s.RequireOrgRole(ctx, actor, orgID, constants.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.orgs.UpdateName(ctx, orgID, strings.TrimSpace(name)); err != nil {
		return nil, apperrors.NewInternalError("failed to rename organization", err)
	}
	return s.Get(ctx, actor, orgID)
}

// AddMember invites an existing user into the organization.
func (s *OrganizationService) AddMember(ctx context.Context, actor *auth.UserSession, orgID, email, role string) (*models.TeamMember, error) {
	if err := s.RequireOrgRole(ctx, actor, orgID, constants.RoleAdmin, constants.RoleProjectManager); err != nil {
		return nil, err
	}
	if !constants.IsValidRole(role) {
		return nil, apperrors.NewValidationError("role", "unknown role")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user", email)
	}

	existing, err := s.orgs.GetMemberRole(ctx, orgID, user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check membership", err)
	}
	if existing != "" {
		return nil, apperrors.NewConflictError("member", "user", email)
	}

	member := &models.TeamMember{
		ID:             utils.GenerateID(),
		OrganizationID: orgID,
		UserID:         user.ID,
		Role:           role,
		UserName:       user.Name,
		UserEmail:      user.Email,
	}

	err = s.tm.WithTransaction(func(tx *sql.Tx) error {
		if err := s.orgs.AddMember(ctx, tx, member); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, events.MemberAdded, events.Payload{
			OrganizationID: orgID,
			ActorID:        actor.ID,
			ObjectID:       user.ID,
			ObjectType:     "member",
			RecipientIDs:   []string{user.ID},
			Title:          "You were added to an organization",
			Body:           "You are now a member with role " + role,
			Link:           "/orgs/" + orgID,
		})
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to add member", err)
	}

	s.audit.Log(ctx, orgID, actor.ID, "org.member_added", "member", user.ID, role)
	return member, nil
}

func (s *OrganizationService) RemoveMember(ctx context.Context, actor *auth.UserSession, orgID, userID string) error {
	if err := s.RequireOrgRole(ctx, actor, orgID, constants.RoleAdmin); err != nil {
		return err
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return apperrors.NewInternalError("failed to load organization", err)
	}
	if org == nil {
		return apperrors.NewNotFoundError("organization", orgID)
	}
	if org.OwnerID == userID {
		return apperrors.NewValidationError("user_id", "the owner cannot be removed")
	}

	if err := s.orgs.RemoveMember(ctx, orgID, userID); err != nil {
		return apperrors.NewInternalError("failed to remove member", err)
	}
	s.audit.Log(ctx, orgID, actor.ID, "org.member_removed", "member", userID, "")
	return nil
}

func (s *OrganizationService) UpdateMemberRole(ctx context.Context, actor *auth.UserSession, orgID, userID, role string) error {
	if err := s.RequireOrgRole(ctx, actor, orgID, constants.RoleAdmin); err != nil {
		return err
	}
	if !constants.IsValidRole(role) {
		return apperrors.NewValidationError("role", "unknown role")
	}
	if err := s.orgs.UpdateMemberRole(ctx, orgID, userID, role); err != nil {
		return apperrors.NewInternalError("failed to update member role", err)
	}
	s.audit.Log(ctx, orgID, actor.ID, "org.member_role_updated", "member", userID, role)
	return nil
}

func (s *OrganizationService) ListMembers(ctx context.Context, actor *auth.UserSession, orgID string) ([]*models.TeamMember, error) {
	if err := s.RequireMember(ctx, actor, orgID); err != nil {
		return nil, err
	}
	return s.orgs.ListMembers(ctx, orgID)
}

// RequireMember rejects callers who are not in the organization. System
// admins pass.
func (s *OrganizationService) RequireMember(ctx context.Context, actor *auth.UserSession, orgID string) error {
	if actor.IsAdmin() {
		return nil
	}
	role, err := s.orgs.GetMemberRole(ctx, orgID, actor.ID)
	if err != nil {
		return apperrors.NewInternalError("failed to check membership", err)
	}
	if role == "" {
		return apperrors.NewPermissionError("access", "organization")
	}
	return nil
}

// RequireOrgRole rejects callers whose org-scoped role is not in the allowed
// set. System admins pass.
func (s *OrganizationService) RequireOrgRole(ctx context.Context, actor *auth.UserSession, orgID string, roles ...constants.Role) error {
	if actor.IsAdmin() {
		return nil
	}
	role, err := s.orgs.GetMemberRole(ctx, orgID, actor.ID)
	if err != nil {
		return apperrors.NewInternalError("failed to check membership", err)
	}
	for _, allowed := range roles {
		if role == string(allowed) {
			return nil
		}
	}
	return apperrors.NewPermissionError("manage", "organization")
}
