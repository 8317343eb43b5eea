package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/payout"
	"github.com/orbitapp/backend/pkg/utils"
)

// PayoutService turns approved tasks into payout rows and manages release.
type PayoutService struct {
	payouts *persistence.PayoutRepository
	outbox  *persistence.OutboxRepository
	audit   *AuditService
}

func NewPayoutService(payouts *persistence.PayoutRepository, outbox *persistence.OutboxRepository, audit *AuditService) *PayoutService {
	return &PayoutService{payouts: payouts, outbox: outbox, audit: audit}
}

// CreateForApprovedTask computes the Shapley split for an approved task and
// writes the payout rows inside the caller's transaction.
func (s *PayoutService) CreateForApprovedTask(ctx context.Context, tx *sql.Tx, task *models.Task, reviews []*models.QCReview) error {
	if task.AssigneeID == nil {
		return apperrors.NewValidationError("task", "task has no assignee")
	}

	params := payout.Params{V: task.Value, V0: task.V0, P0: task.P0, Beta: task.Beta, Gamma: task.Gamma, K: task.K}
	passes := make([]payout.Pass, len(reviews))
	for i, r := range reviews {
		passes[i] = payout.Pass{ReviewerID: r.ReviewerID, Score: r.Score, Weight: r.Weight}
	}

	result, err := payout.Split(params, *task.AssigneeID, passes)
	if err != nil {
		return apperrors.NewInternalError("payout computation failed", err)
	}

	rows := []*models.Payout{{
		ID:        utils.GenerateID(),
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		UserID:    *task.AssigneeID,
		Role:      constants.PayoutRoleWorker,
		Amount:    result.WorkerShare,
		Quality:   result.Quality,
		Status:    constants.PayoutPending,
	}}
	recipients := []string{*task.AssigneeID}
	for reviewerID, share := range result.ReviewerShares {
		rows = append(rows, &models.Payout{
			ID:        utils.GenerateID(),
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			UserID:    reviewerID,
			Role:      constants.PayoutRoleReviewer,
			Amount:    share,
			Quality:   result.Quality,
			Status:    constants.PayoutPending,
		})
		recipients = append(recipients, reviewerID)
	}

	if err := s.payouts.CreateBatch(ctx, tx, rows); err != nil {
		return err
	}

	log.Printf("✅ Payouts created for task %s: pool %.2f over %d recipient(s)", task.ID, result.Pool, len(rows))
	return s.outbox.Enqueue(ctx, tx, events.PayoutCreated, events.Payload{
		ActorID:      "",
		ObjectID:     task.ID,
		ObjectType:   "payout",
		RecipientIDs: recipients,
		Title:        "Payout created",
		Body:         fmt.Sprintf("Task '%s' approved, pool %.2f", task.Title, result.Pool),
		Link:         "/tasks/" + task.ID + "/payouts",
	})
}

// Preview computes the split for a task without persisting anything, so
// managers can see the division before deciding.
func (s *PayoutService) Preview(task *models.Task, reviews []*models.QCReview) (*payout.Result, error) {
	if task.AssigneeID == nil {
		return nil, apperrors.NewValidationError("task", "task has no assignee")
	}
	params := payout.Params{V: task.Value, V0: task.V0, P0: task.P0, Beta: task.Beta, Gamma: task.Gamma, K: task.K}
	passes := make([]payout.Pass, len(reviews))
	for i, r := range reviews {
		passes[i] = payout.Pass{ReviewerID: r.ReviewerID, Score: r.Score, Weight: r.Weight}
	}
	result, err := payout.Split(params, *task.AssigneeID, passes)
	if err != nil {
		return nil, apperrors.NewValidationError("payout", err.Error())
	}
	return result, nil
}

func (s *PayoutService) ListByTask(ctx context.Context, taskID string) ([]*models.Payout, error) {
	return s.payouts.ListByTask(ctx, taskID)
}

func (s *PayoutService) ListMine(ctx context.Context, userID string) ([]*models.Payout, error) {
	return s.payouts.ListByUser(ctx, userID)
}

// Release marks a pending payout released and notifies the recipient.
func (s *PayoutService) Release(ctx context.Context, actor *auth.UserSession, payoutID string) (*models.Payout, error) {
	if !actor.HasRole(constants.RoleProjectManager) {
		return nil, apperrors.NewPermissionError("release", "payout")
	}

	p, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load payout", err)
	}
	if p == nil {
		return nil, apperrors.NewNotFoundError("payout", payoutID)
	}

	ok, err := s.payouts.Release(ctx, payoutID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to release payout", err)
	}
	if !ok {
		return nil, apperrors.NewConflictError("payout", "status", p.Status)
	}

	if err := s.outbox.Enqueue(ctx, nil, events.PayoutReleased, events.Payload{
		ActorID:      actor.ID,
		ObjectID:     payoutID,
		ObjectType:   "payout",
		RecipientIDs: []string{p.UserID},
		Title:        "Payout released",
		Body:         fmt.Sprintf("%.2f is on its way", p.Amount),
		Link:         "/payouts",
	}); err != nil {
		log.Printf("⚠️ Failed to enqueue payout.released for %s: %v", payoutID, err)
	}

	s.audit.Log(ctx, "", actor.ID, "payout.released", "payout", payoutID, "")
	return s.payouts.GetByID(ctx, payoutID)
}
