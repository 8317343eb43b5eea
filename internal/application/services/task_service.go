package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/payout"
	"github.com/orbitapp/backend/pkg/utils"
)

// TaskService owns the task lifecycle up to review; the QC and payout
// services take over from submission.
type TaskService struct {
	tasks    *persistence.TaskRepository
	projects *ProjectService
	outbox   *persistence.OutboxRepository
	tm       *persistence.TransactionManager
	audit    *AuditService
}

func NewTaskService(tasks *persistence.TaskRepository, projects *ProjectService,
	outbox *persistence.OutboxRepository, tm *persistence.TransactionManager, audit *AuditService) *TaskService {
	return &TaskService{tasks: tasks, projects: projects, outbox: outbox, tm: tm, audit: audit}
}

// CreateTaskRequest is the task creation surface. Payout parameters default
// from policy when omitted and are snapshotted onto the task.
type CreateTaskRequest struct {
	ProjectID   string     `json:"project_id" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Value       float64    `json:"value"`
	V0          *float64   `json:"v0"`
	P0          *float64   `json:"p0"`
	Beta        *float64   `json:"beta"`
	Gamma       *float64   `json:"gamma"`
	K           *int       `json:"k"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *TaskService) Create(ctx context.Context, actor *auth.UserSession, req CreateTaskRequest) (*models.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidationError("title", "task title is required")
	}

	project, err := s.projects.Get(ctx, actor, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.requireManage(ctx, actor, project); err != nil {
		return nil, err
	}
	if project.Status != constants.ProjectActive {
		return nil, apperrors.NewValidationError("project_id", "cannot add tasks to an archived project")
	}

	params := payout.Params{
		V:     req.Value,
		V0:    constants.DefaultPayoutV0,
		P0:    constants.DefaultPayoutP0,
		Beta:  constants.DefaultPayoutBeta,
		Gamma: constants.DefaultPayoutGamma,
		K:     constants.DefaultPayoutK,
	}
	if req.V0 != nil {
		params.V0 = *req.V0
	}
	if req.P0 != nil {
		params.P0 = *req.P0
	}
	if req.Beta != nil {
		params.Beta = *req.Beta
	}
	if req.Gamma != nil {
		params.Gamma = *req.Gamma
	}
	if req.K != nil {
		params.K = *req.K
	}
	if err := params.Validate(); err != nil {
		return nil, apperrors.NewValidationError("payout_params", err.Error())
	}

	task := &models.Task{
		ID:          utils.GenerateID(),
		ProjectID:   req.ProjectID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      string(constants.TaskOpen),
		Value:       params.V,
		V0:          params.V0,
		P0:          params.P0,
		Beta:        params.Beta,
		Gamma:       params.Gamma,
		K:           params.K,
		DueDate:     req.DueDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.NewInternalError("failed to create task", err)
	}

	s.audit.Log(ctx, project.OrganizationID, actor.ID, "task.created", "task", task.ID, task.Title)
	return task, nil
}

// UpdateTaskRequest covers the editable fields. Payout parameters are a
// snapshot and cannot change once review has started.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Value       *float64   `json:"value"`
	DueDate     *time.Time `json:"due_date"`
}

// Update edits a task before it reaches review.
func (s *TaskService) Update(ctx context.Context, actor *auth.UserSession, taskID string, req UpdateTaskRequest) (*models.Task, error) {
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.Get(ctx, actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.requireManage(ctx, actor, project); err != nil {
		return nil, err
	}

	switch constants.TaskStatus(task.Status) {
	case constants.TaskOpen, constants.TaskAssigned, constants.TaskInProgress:
	default:
		return nil, apperrors.NewValidationError("status", "tasks in review can no longer be edited")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperrors.NewValidationError("title", "task title is required")
		}
		updates[constants.FieldTaskTitle] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Value != nil {
		if *req.Value < task.V0 {
			return nil, apperrors.NewValidationError("value", "task value cannot drop below its floor")
		}
		updates[constants.FieldTaskValue] = *req.Value
	}
	if req.DueDate != nil {
		updates[constants.FieldTaskDueDate] = *req.DueDate
	}
	if len(updates) == 0 {
		return task, nil
	}

	if err := s.tasks.Update(ctx, nil, taskID, updates); err != nil {
		return nil, apperrors.NewInternalError("failed to update task", err)
	}
	s.audit.Log(ctx, project.OrganizationID, actor.ID, "task.updated", "task", taskID, "")
	return s.tasks.GetByID(ctx, taskID)
}

// Get loads a task the actor can see.
func (s *TaskService) Get(ctx context.Context, actor *auth.UserSession, taskID string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load task", err)
	}
	if task == nil {
		return nil, apperrors.NewNotFoundError("task", taskID)
	}

	if task.AssigneeID != nil && *task.AssigneeID == actor.ID {
		return task, nil
	}
	level, err := s.tasks.GetAccessLevel(ctx, taskID, actor.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check access", err)
	}
	if level != "" {
		return task, nil
	}
	// Fall back to project visibility.
	if _, err := s.projects.Get(ctx, actor, task.ProjectID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListByProject(ctx context.Context, actor *auth.UserSession, projectID string) ([]*models.Task, error) {
	if _, err := s.projects.Get(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.tasks.ListByProject(ctx, projectID)
}

func (s *TaskService) ListMine(ctx context.Context, actor *auth.UserSession) ([]*models.Task, error) {
	return s.tasks.ListByAssignee(ctx, actor.ID)
}

// Assign moves an open task to assigned and notifies the assignee.
func (s *TaskService) Assign(ctx context.Context, actor *auth.UserSession, taskID, assigneeID string) (*models.Task, error) {
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.Get(ctx, actor, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.requireManage(ctx, actor, project); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, task, constants.TaskAssigned, func(tx *sql.Tx) error {
		if err := s.tasks.Update(ctx, tx, taskID, map[string]interface{}{constants.FieldTaskAssigneeID: assigneeID}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, events.TaskAssigned, events.Payload{
			OrganizationID: project.OrganizationID,
			ActorID:        actor.ID,
			ObjectID:       taskID,
			ObjectType:     "task",
			RecipientIDs:   []string{assigneeID},
			Title:          "Task assigned to you",
			Body:           task.Title,
			Link:           "/tasks/" + taskID,
		})
	}); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, project.OrganizationID, actor.ID, "task.assigned", "task", taskID, assigneeID)
	return s.tasks.GetByID(ctx, taskID)
}

// Start moves an assigned task to in_progress. Only the assignee may start.
func (s *TaskService) Start(ctx context.Context, actor *auth.UserSession, taskID string) (*models.Task, error) {
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID == nil || *task.AssigneeID != actor.ID {
		return nil, apperrors.NewPermissionError("start", "task")
	}
	if err := s.transition(ctx, task, constants.TaskInProgress, nil); err != nil {
		return nil, err
	}
	return s.tasks.GetByID(ctx, taskID)
}

// Submit moves an in_progress task to submitted and stamps submitted_at.
func (s *TaskService) Submit(ctx context.Context, actor *auth.UserSession, taskID string) (*models.Task, error) {
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID == nil || *task.AssigneeID != actor.ID {
		return nil, apperrors.NewPermissionError("submit", "task")
	}

	project, err := s.projects.projects.GetByID(ctx, task.ProjectID)
	if err != nil || project == nil {
		return nil, apperrors.NewInternalError("failed to load project", err)
	}

	if err := s.transition(ctx, task, constants.TaskSubmitted, func(tx *sql.Tx) error {
		if err := s.tasks.Update(ctx, tx, taskID, map[string]interface{}{constants.FieldTaskSubmittedAt: time.Now()}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, events.TaskSubmitted, events.Payload{
			OrganizationID: project.OrganizationID,
			ActorID:        actor.ID,
			ObjectID:       taskID,
			ObjectType:     "task",
			RecipientIDs:   []string{project.ManagerID},
			Title:          "Task submitted for review",
			Body:           task.Title,
			Link:           "/tasks/" + taskID,
		})
	}); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, project.OrganizationID, actor.ID, "task.submitted", "task", taskID, "")
	return s.tasks.GetByID(ctx, taskID)
}

// transition applies a guarded status move plus optional transactional side
// effects. The compare-and-swap keeps concurrent writers honest.
func (s *TaskService) transition(ctx context.Context, task *models.Task, to constants.TaskStatus, sideEffects func(tx *sql.Tx) error) error {
	from := constants.TaskStatus(task.Status)
	if !constants.CanTransitionTask(from, to) {
		return apperrors.NewTransitionError("task", task.Status, string(to), allowedTaskTargets(from))
	}

	return s.tm.WithTransaction(func(tx *sql.Tx) error {
		moved, err := s.tasks.UpdateStatusIf(ctx, tx, task.ID, task.Status, string(to))
		if err != nil {
			return err
		}
		if !moved {
			return apperrors.NewConflictError("task", "status", task.Status)
		}
		if sideEffects != nil {
			return sideEffects(tx)
		}
		return nil
	})
}

func allowedTaskTargets(from constants.TaskStatus) []string {
	targets := constants.TaskTransitions[from]
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = string(t)
	}
	return out
}

// GrantAccess gives a user direct access to a single task.
func (s *TaskService) GrantAccess(ctx context.Context, actor *auth.UserSession, taskID, userID, level string) error {
	if level != constants.AccessRead && level != constants.AccessWrite && level != constants.AccessManage {
		return apperrors.NewValidationError("level", "level must be read, write or manage")
	}
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return err
	}
	project, err := s.projects.Get(ctx, actor, task.ProjectID)
	if err != nil {
		return err
	}
	if err := s.projects.requireManage(ctx, actor, project); err != nil {
		return err
	}
	if err := s.tasks.GrantAccess(ctx, &models.TaskAccess{
		ID:     utils.GenerateID(),
		TaskID: taskID,
		UserID: userID,
		Level:  level,
	}); err != nil {
		return apperrors.NewInternalError("failed to grant access", err)
	}
	s.audit.Log(ctx, project.OrganizationID, actor.ID, "task.access_granted", "task", taskID, fmt.Sprintf("%s:%s", userID, level))
	return nil
}

func (s *TaskService) RevokeAccess(ctx context.Context, actor *auth.UserSession, taskID, userID string) error {
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return err
	}
	project, err := s.projects.Get(ctx, actor, task.ProjectID)
	if err != nil {
		return err
	}
	if err := s.projects.requireManage(ctx, actor, project); err != nil {
		return err
	}
	if err := s.tasks.RevokeAccess(ctx, taskID, userID); err != nil {
		return apperrors.NewInternalError("failed to revoke access", err)
	}
	s.audit.Log(ctx, project.OrganizationID, actor.ID, "task.access_revoked", "task", taskID, userID)
	return nil
}
