package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/utils"
)

// guestSeedTitles are the starter tasks every trial workspace gets.
var guestSeedTitles = []string{
	"Explore your project board",
	"Move a task to in progress",
	"Invite your team (requires an account)",
}

// GuestService runs the anonymous trial flow: a token-keyed workspace that
// lives for 24 hours and is swept afterwards.
type GuestService struct {
	guests *persistence.GuestRepository
	tm     *persistence.TransactionManager
}

func NewGuestService(guests *persistence.GuestRepository, tm *persistence.TransactionManager) *GuestService {
	return &GuestService{guests: guests, tm: tm}
}

// GuestWorkspace is the complete trial state keyed by the session token.
type GuestWorkspace struct {
	Project *models.GuestProject `json:"project"`
	Tasks   []*models.GuestTask  `json:"tasks"`
	Token   string               `json:"token,omitempty"`
}

// Start creates a trial workspace with seed tasks and returns its token. The
// token is the only credential: it appears once in this response.
func (s *GuestService) Start(ctx context.Context, name string) (*GuestWorkspace, error) {
	if strings.TrimSpace(name) == "" {
		name = "My trial project"
	}

	token, err := utils.GenerateURLToken(32)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to mint session token", err)
	}

	project := &models.GuestProject{
		ID:           utils.GenerateID(),
		SessionToken: token,
		Name:         strings.TrimSpace(name),
		ExpiresAt:    nowFunc().Add(constants.GuestSessionLifetime),
	}

	tasks := make([]*models.GuestTask, 0, constants.GuestSeedTaskCount)
	for i := 0; i < constants.GuestSeedTaskCount && i < len(guestSeedTitles); i++ {
		tasks = append(tasks, &models.GuestTask{
			ID:             utils.GenerateID(),
			GuestProjectID: project.ID,
			Title:          guestSeedTitles[i],
			Status:         string(constants.TaskOpen),
		})
	}

	err = s.tm.WithTransaction(func(tx *sql.Tx) error {
		return s.guests.CreateProject(ctx, tx, project, tasks)
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create guest workspace", err)
	}

	log.Printf("✅ Guest workspace created, expires %s", project.ExpiresAt.Format("15:04"))
	return &GuestWorkspace{Project: project, Tasks: tasks, Token: token}, nil
}

// Get loads a trial workspace by token. Expired sessions report 410.
func (s *GuestService) Get(ctx context.Context, token string) (*GuestWorkspace, error) {
	project, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	tasks, err := s.guests.ListTasks(ctx, project.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list guest tasks", err)
	}
	return &GuestWorkspace{Project: project, Tasks: tasks}, nil
}

// AddTask appends a task to the trial workspace.
func (s *GuestService) AddTask(ctx context.Context, token, title string) (*models.GuestTask, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError("title", "task title is required")
	}
	project, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	task := &models.GuestTask{
		ID:             utils.GenerateID(),
		GuestProjectID: project.ID,
		Title:          strings.TrimSpace(title),
		Status:         string(constants.TaskOpen),
	}
	if err := s.guests.CreateTask(ctx, task); err != nil {
		return nil, apperrors.NewInternalError("failed to create guest task", err)
	}
	return task, nil
}

// MoveTask transitions a guest task through the simplified trial board:
// open -> in_progress -> approved.
func (s *GuestService) MoveTask(ctx context.Context, token, taskID, status string) error {
	allowed := map[string]bool{
		string(constants.TaskOpen):       true,
		string(constants.TaskInProgress): true,
		string(constants.TaskApproved):   true,
	}
	if !allowed[status] {
		return apperrors.NewValidationError("status", fmt.Sprintf("status %q is not available in trial mode", status))
	}

	project, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}
	ok, err := s.guests.UpdateTaskStatus(ctx, project.ID, taskID, status)
	if err != nil {
		return apperrors.NewInternalError("failed to move guest task", err)
	}
	if !ok {
		return apperrors.NewNotFoundError("task", taskID)
	}
	return nil
}

// SweepExpired deletes dead trial workspaces. Called by the scheduler.
func (s *GuestService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.guests.DeleteExpired(ctx, nowFunc())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("⏰ Swept %d expired guest workspace(s)", n)
	}
	return n, nil
}

func (s *GuestService) lookup(ctx context.Context, token string) (*models.GuestProject, error) {
	project, err := s.guests.GetProjectByToken(ctx, token)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up guest session", err)
	}
	if project == nil {
		return nil, apperrors.NewNotFoundError("guest session", "")
	}
	if project.ExpiresAt.Before(nowFunc()) {
		return nil, apperrors.NewGoneError("guest session")
	}
	return project, nil
}
