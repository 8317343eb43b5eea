package services

import (
	"context"
	"strings"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/utils"
)

// ProjectService manages projects and project-level access grants.
type ProjectService struct {
	projects *persistence.ProjectRepository
	orgs     *OrganizationService
	audit    *AuditService
}

func NewProjectService(projects *persistence.ProjectRepository, orgs *OrganizationService, audit *AuditService) *ProjectService {
	return &ProjectService{projects: projects, orgs: orgs, audit: audit}
}

// CreateProjectRequest is the project creation surface.
type CreateProjectRequest struct {
	OrganizationID string  `json:"organization_id" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	Budget         float64 `json:"budget"`
}

func (s *ProjectService) Create(ctx context.Context, actor *auth.UserSession, req CreateProjectRequest) (*models.Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.NewValidationError("name", "project name is required")
	}
	if req.Budget < 0 {
		return nil, apperrors.NewValidationError("budget", "budget must be non-negative")
	}
	if err := s.orgs.RequireOrgRole(ctx, actor, req.OrganizationID,
		constants.RoleAdmin, constants.RoleProjectManager, constants.RoleSales); err != nil {
		return nil, err
	}

	project := &models.Project{
		ID:             utils.GenerateID(),
		OrganizationID: req.OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Status:         constants.ProjectActive,
		ManagerID:      actor.ID,
		Budget:         req.Budget,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apperrors.NewInternalError("failed to create project", err)
	}

	s.audit.Log(ctx, req.OrganizationID, actor.ID, "project.created", "project", project.ID, project.Name)
	return project, nil
}

// Get loads a project the actor can see.
func (s *ProjectService) Get(ctx context.Context, actor *auth.UserSession, projectID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load project", err)
	}
	if project == nil {
		return nil, apperrors.NewNotFoundError("project", projectID)
	}
	if err := s.requireRead(ctx, actor, project); err != nil {
		return nil, err
	}
	return project, nil
}

// List returns the org's projects the actor may see. Managers and admins see
// all; everyone else sees only projects they touch.
func (s *ProjectService) List(ctx context.Context, actor *auth.UserSession, orgID string) ([]*models.Project, error) {
	if err := s.orgs.RequireMember(ctx, actor, orgID); err != nil {
		return nil, err
	}
	if actor.HasRole(constants.RoleProjectManager, constants.RoleSales) {
		return s.projects.ListByOrganization(ctx, orgID)
	}
	return s.projects.ListVisibleToUser(ctx, orgID, actor.ID)
}

// UpdateProjectRequest is the partial-update surface.
type UpdateProjectRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Budget      *float64 `json:"budget"`
}

func (s *ProjectService) Update(ctx context.Context, actor *auth.UserSession, projectID string, req UpdateProjectRequest) (*models.Project, error) {
	project, err := s.Get(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, actor, project); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperrors.NewValidationError("name", "project name is required")
		}
		updates[constants.FieldName] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		if *req.Status != constants.ProjectActive && *req.Status != constants.ProjectArchived {
			return nil, apperrors.NewValidationError("status", "status must be active or archived")
		}
		updates[constants.FieldStatus] = *req.Status
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			return nil, apperrors.NewValidationError("budget", "budget must be non-negative")
		}
		updates["budget"] = *req.Budget
	}

	if err := s.projects.Update(ctx, projectID, updates); err != nil {
		return nil, apperrors.NewInternalError("failed to update project", err)
	}
	s.audit.Log(ctx, project.OrganizationID, actor.ID, "project.updated", "project", projectID, "")
	return s.projects.GetByID(ctx, projectID)
}

// GrantAccess gives a user read/write/manage access on a project.
func (s *ProjectService) GrantAccess(ctx context.Context, actor *auth.UserSession, projectID, userID, level string) error {
	if level != constants.AccessRead && level != constants.AccessWrite && level != constants.AccessManage {
		return apperrors.NewValidationError("level", "level must be read, write or manage")
	}

	project, err := s.Get(ctx, actor, projectID)
	if err != nil {
		return err
	}
	if err := s.requireManage(ctx, actor, project); err != nil {
		return err
	}

	if err := s.projects.GrantAccess(ctx, &models.ProjectAccess{
		ID:        utils.GenerateID(),
		ProjectID: projectID,
		UserID:    userID,
		Level:     level,
	}); err != nil {
		return apperrors.NewInternalError("failed to grant access", err)
	}
	s.audit.Log(ctx, project.OrganizationID, actor.ID, "project.access_granted", "project", projectID, userID+":"+level)
	return nil
}

func (s *ProjectService) RevokeAccess(ctx context.Context, actor *auth.UserSession, projectID, userID string) error {
	project, err := s.Get(ctx, actor, projectID)
	if err != nil {
		return err
	}
	if err := s.requireManage(ctx, actor, project); err != nil {
		return err
	}
	if err := s.projects.RevokeAccess(ctx, projectID, userID); err != nil {
		return apperrors.NewInternalError("failed to revoke access", err)
	}
	s.audit.Log(ctx, project.OrganizationID, actor.ID, "project.access_revoked", "project", projectID, userID)
	return nil
}

func (s *ProjectService) ListAccess(ctx context.Context, actor *auth.UserSession, projectID string) ([]*models.ProjectAccess, error) {
	project, err := s.Get(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, actor, project); err != nil {
		return nil, err
	}
	return s.projects.ListAccess(ctx, projectID)
}

// requireRead allows org members holding a managing role, the project
// manager, anyone with a grant, and assignees of the project's tasks.
func (s *ProjectService) requireRead(ctx context.Context, actor *auth.UserSession, project *models.Project) error {
	if actor.IsAdmin() || project.ManagerID == actor.ID {
		return nil
	}
	if err := s.orgs.RequireMember(ctx, actor, project.OrganizationID); err != nil {
		return err
	}
	if actor.HasRole(constants.RoleProjectManager, constants.RoleSales, constants.RoleQualityControl) {
		return nil
	}
	level, err := s.projects.GetAccessLevel(ctx, project.ID, actor.ID)
	if err != nil {
		return apperrors.NewInternalError("failed to check access", err)
	}
	if level != "" {
		return nil
	}
	return apperrors.NewPermissionError("view", "project")
}

// requireManage allows admins, the project manager, and manage-level grants.
func (s *ProjectService) requireManage(ctx context.Context, actor *auth.UserSession, project *models.Project) error {
	if actor.IsAdmin() || project.ManagerID == actor.ID {
		return nil
	}
	level, err := s.projects.GetAccessLevel(ctx, project.ID, actor.ID)
	if err != nil {
		return apperrors.NewInternalError("failed to check access", err)
	}
	if level == constants.AccessManage {
		return nil
	}
	return apperrors.NewPermissionError("manage", "project")
}
