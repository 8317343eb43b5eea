package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/payout"
	"github.com/orbitapp/backend/pkg/utils"
)

// QCService records review passes over submitted tasks and drives the
// approve/reject decision.
type QCService struct {
	reviews  *persistence.QCRepository
	tasks    *persistence.TaskRepository
	projects *persistence.ProjectRepository
	payouts  *PayoutService
	outbox   *persistence.OutboxRepository
	tm       *persistence.TransactionManager
	audit    *AuditService
}

func NewQCService(reviews *persistence.QCRepository, tasks *persistence.TaskRepository,
	projects *persistence.ProjectRepository, payouts *PayoutService,
	outbox *persistence.OutboxRepository, tm *persistence.TransactionManager, audit *AuditService) *QCService {
	return &QCService{
		reviews: reviews, tasks: tasks, projects: projects,
		payouts: payouts, outbox: outbox, tm: tm, audit: audit,
	}
}

// RecordPassRequest is one QC pass. Weight defaults to Gamma^(pass-1) from
// the task's snapshotted parameters when omitted.
type RecordPassRequest struct {
	TaskID string   `json:"task_id" binding:"required"`
	Score  float64  `json:"score"`
	Passed bool     `json:"passed"`
	Weight *float64 `json:"weight"`
	Notes  string   `json:"notes"`
}

// RecordPass appends a review pass. The first pass moves the task from
// submitted to in_review.
func (s *QCService) RecordPass(ctx context.Context, actor *auth.UserSession, req RecordPassRequest) (*models.QCReview, error) {
	if !actor.HasRole(constants.RoleQualityControl, constants.RoleProjectManager) {
		return nil, apperrors.NewPermissionError("review", "task")
	}
	if req.Score < 0 || req.Score > 1 {
		return nil, apperrors.NewValidationError("score", "score must be within [0,1]")
	}

	task, err := s.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load task", err)
	}
	if task == nil {
		return nil, apperrors.NewNotFoundError("task", req.TaskID)
	}
	if task.AssigneeID != nil && *task.AssigneeID == actor.ID {
		return nil, apperrors.NewValidationError("reviewer", "workers cannot review their own task")
	}

	status := constants.TaskStatus(task.Status)
	if status != constants.TaskSubmitted && status != constants.TaskInReview {
		return nil, apperrors.NewTransitionError("task", task.Status, string(constants.TaskInReview),
			[]string{string(constants.TaskSubmitted), string(constants.TaskInReview)})
	}

	passNumber, err := s.reviews.NextPassNumber(ctx, req.TaskID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sequence pass", err)
	}
	if passNumber > task.K {
		return nil, apperrors.NewValidationError("pass_number",
			fmt.Sprintf("task allows at most %d QC passes", task.K))
	}

	params := payout.Params{V: task.Value, V0: task.V0, P0: task.P0, Beta: task.Beta, Gamma: task.Gamma, K: task.K}
	weight := params.DefaultWeight(passNumber)
	if req.Weight != nil {
		if *req.Weight < 0 {
			return nil, apperrors.NewValidationError("weight", "weight must be non-negative")
		}
		weight = *req.Weight
	}

	review := &models.QCReview{
		ID:         utils.GenerateID(),
		TaskID:     req.TaskID,
		ReviewerID: actor.ID,
		PassNumber: passNumber,
		Score:      req.Score,
		Weight:     weight,
		Passed:     req.Passed,
		Notes:      req.Notes,
	}

	err = s.tm.WithTransaction(func(tx *sql.Tx) error {
		if status == constants.TaskSubmitted {
			moved, err := s.tasks.UpdateStatusIf(ctx, tx, task.ID, task.Status, string(constants.TaskInReview))
			if err != nil {
				return err
			}
			if !moved {
				return apperrors.NewConflictError("task", "status", task.Status)
			}
		}
		if err := s.reviews.Create(ctx, tx, review); err != nil {
			return err
		}
		recipients := []string{}
		if task.AssigneeID != nil {
			recipients = append(recipients, *task.AssigneeID)
		}
		return s.outbox.Enqueue(ctx, tx, events.QCPassRecorded, events.Payload{
			ActorID:      actor.ID,
			ObjectID:     task.ID,
			ObjectType:   "task",
			RecipientIDs: recipients,
			Title:        fmt.Sprintf("QC pass %d recorded", passNumber),
			Body:         task.Title,
			Link:         "/tasks/" + task.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, "", actor.ID, "qc.pass_recorded", "task", task.ID, fmt.Sprintf("pass=%d score=%.2f", passNumber, req.Score))
	return review, nil
}

// ListPasses returns a task's review history in pass order.
func (s *QCService) ListPasses(ctx context.Context, taskID string) ([]*models.QCReview, error) {
	return s.reviews.ListByTask(ctx, taskID)
}

// Decide closes review: approval computes and stores the payout split in the
// same transaction as the status change; rejection sends the task back to the
// worker.
func (s *QCService) Decide(ctx context.Context, actor *auth.UserSession, taskID string, approve bool) (*models.Task, error) {
	if !actor.HasRole(constants.RoleQualityControl, constants.RoleProjectManager) {
		return nil, apperrors.NewPermissionError("decide", "task")
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load task", err)
	}
	if task == nil {
		return nil, apperrors.NewNotFoundError("task", taskID)
	}
	if constants.TaskStatus(task.Status) != constants.TaskInReview {
		return nil, apperrors.NewTransitionError("task", task.Status, string(constants.TaskApproved),
			[]string{string(constants.TaskInReview)})
	}
	if task.AssigneeID == nil {
		return nil, apperrors.NewValidationError("task", "task has no assignee")
	}

	project, err := s.projects.GetByID(ctx, task.ProjectID)
	if err != nil || project == nil {
		return nil, apperrors.NewInternalError("failed to load project", err)
	}

	reviews, err := s.reviews.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load reviews", err)
	}

	target := constants.TaskApproved
	eventType := events.TaskApproved
	title := "Task approved"
	if !approve {
		target = constants.TaskRejected
		eventType = events.TaskRejected
		title = "Task rejected"
	}

	err = s.tm.WithRetry(func(tx *sql.Tx) error {
		moved, err := s.tasks.UpdateStatusIf(ctx, tx, taskID, task.Status, string(target))
		if err != nil {
			return err
		}
		if !moved {
			return apperrors.NewConflictError("task", "status", task.Status)
		}

		if approve {
			if err := s.tasks.Update(ctx, tx, taskID, map[string]interface{}{constants.FieldTaskCompletedAt: nowFunc()}); err != nil {
				return err
			}
			if err := s.payouts.CreateForApprovedTask(ctx, tx, task, reviews); err != nil {
				return err
			}
		}

		return s.outbox.Enqueue(ctx, tx, eventType, events.Payload{
			OrganizationID: project.OrganizationID,
			ActorID:        actor.ID,
			ObjectID:       taskID,
			ObjectType:     "task",
			RecipientIDs:   []string{*task.AssigneeID},
			Title:          title,
			Body:           task.Title,
			Link:           "/tasks/" + taskID,
		})
	}, 3)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, project.OrganizationID, actor.ID, "qc.decision", "task", taskID, string(target))
	return s.tasks.GetByID(ctx, taskID)
}
