package services

import (
	"context"
	"log"
	"time"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/expression"
	"github.com/orbitapp/backend/pkg/utils"
)

// routingRule maps a domain event onto a notification kind. A non-empty When
// is an expr predicate over the event payload; events it rejects produce no
// notification.
type routingRule struct {
	Kind string
	When string
}

// defaultRouting covers every event that fans out to user inboxes.
var defaultRouting = map[events.EventType]routingRule{
	events.TaskAssigned:     {Kind: constants.NotifTaskAssigned},
	events.TaskSubmitted:    {Kind: constants.NotifTaskSubmitted},
	events.TaskApproved:     {Kind: constants.NotifQCDecision},
	events.TaskRejected:     {Kind: constants.NotifQCDecision},
	events.ContractSent:     {Kind: constants.NotifContractSent},
	events.ContractSigned:   {Kind: constants.NotifContractSigned},
	events.ContractDeclined: {Kind: constants.NotifContractDeclined},
	events.ContractExpired:  {Kind: constants.NotifContractExpired},
	events.PayoutCreated:    {Kind: constants.NotifPayoutCreated, When: `payload.recipient_count > 0`},
	events.PayoutReleased:   {Kind: constants.NotifPayoutReleased},
	events.BadgeAwarded:     {Kind: constants.NotifBadgeAwarded},
	events.MemberAdded:      {Kind: constants.NotifMemberAdded},
	events.WeeklyDigest:     {Kind: constants.NotifWeeklyDigest},
}

// NotificationService materializes domain events into per-user notifications
// and serves the inbox endpoints.
type NotificationService struct {
	repo    *persistence.NotificationRepository
	engine  *expression.Engine
	routing map[events.EventType]routingRule
}

func NewNotificationService(repo *persistence.NotificationRepository, engine *expression.Engine) *NotificationService {
	return &NotificationService{
		repo:    repo,
		engine:  engine,
		routing: defaultRouting,
	}
}

// RegisterHandlers subscribes the service to every routed event type.
func (s *NotificationService) RegisterHandlers(bus *EventBus) {
	for eventType := range s.routing {
		bus.Subscribe(eventType, s.handleEvent)
	}
}

func (s *NotificationService) handleEvent(eventType events.EventType, payload events.Payload) {
	rule, ok := s.routing[eventType]
	if !ok {
		return
	}

	if rule.When != "" {
		env := map[string]interface{}{
			"payload": map[string]interface{}{
				"organization_id": payload.OrganizationID,
				"actor_id":        payload.ActorID,
				"object_type":     payload.ObjectType,
				"recipient_count": len(payload.RecipientIDs),
			},
		}
		pass, err := s.engine.EvaluateBool(rule.When, env)
		if err != nil {
			log.Printf("⚠️ Routing rule for %s failed, delivering anyway: %v", eventType, err)
		} else if !pass {
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, recipientID := range payload.RecipientIDs {
		// Actors don't get notified about their own actions.
		if recipientID == payload.ActorID {
			continue
		}
		n := &models.Notification{
			ID:          utils.GenerateID(),
			RecipientID: recipientID,
			Title:       payload.Title,
			Body:        payload.Body,
			Link:        payload.Link,
			Kind:        rule.Kind,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			log.Printf("❌ Failed to create notification for %s: %v", recipientID, err)
		}
	}
}

// List returns the caller's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	ok, err := s.repo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return apperrors.NewInternalError("failed to mark notification read", err)
	}
	if !ok {
		return apperrors.NewNotFoundError("notification", notificationID)
	}
	return nil
}

// MarkAllRead flags the caller's whole inbox read and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// UnreadCount returns the caller's unread badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
