package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/expression"
	"github.com/orbitapp/backend/pkg/utils"
)

// GamificationService evaluates badge criteria against user stats and awards
// badges. Criteria are expr predicates authored by admins.
type GamificationService struct {
	badges    *persistence.GamificationRepository
	tasks     *persistence.TaskRepository
	reviews   *persistence.QCRepository
	payouts   *persistence.PayoutRepository
	contracts *persistence.ContractRepository
	users     *persistence.UserRepository
	outbox    *persistence.OutboxRepository
	engine    *expression.Engine
}

func NewGamificationService(badges *persistence.GamificationRepository, tasks *persistence.TaskRepository,
	reviews *persistence.QCRepository, payouts *persistence.PayoutRepository,
	contracts *persistence.ContractRepository, users *persistence.UserRepository,
	outbox *persistence.OutboxRepository, engine *expression.Engine) *GamificationService {
	return &GamificationService{
		badges: badges, tasks: tasks, reviews: reviews, payouts: payouts,
		contracts: contracts, users: users, outbox: outbox, engine: engine,
	}
}

// RegisterHandlers re-evaluates a user's badges after the events that can
// change their stats.
func (s *GamificationService) RegisterHandlers(bus *EventBus) {
	handler := func(eventType events.EventType, payload events.Payload) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, userID := range payload.RecipientIDs {
			if _, err := s.EvaluateUser(ctx, userID); err != nil {
				log.Printf("⚠️ Badge evaluation failed for %s: %v", userID, err)
			}
		}
	}
	bus.Subscribe(events.TaskApproved, handler)
	bus.Subscribe(events.PayoutReleased, handler)
	bus.Subscribe(events.ContractSigned, handler)
}

// Stats assembles the badge evaluation environment for one user.
func (s *GamificationService) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user", userID)
	}

	completed, err := s.tasks.CountCompletedByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count tasks", err)
	}
	passRate, err := s.reviews.PassRateForWorker(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to compute pass rate", err)
	}
	earned, err := s.payouts.TotalEarned(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sum earnings", err)
	}
	signed, err := s.contracts.CountSignedForEmail(ctx, strings.ToLower(user.Email))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count contracts", err)
	}
	streak, err := s.badges.StreakDays(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to compute streak", err)
	}

	return &models.UserStats{
		TasksCompleted:    completed,
		QCPassRate:        passRate,
		TotalEarned:       earned,
		CurrentStreakDays: streak,
		ContractsSigned:   signed,
	}, nil
}

// EvaluateUser runs every active badge's criteria against the user's current
// stats and awards the ones that newly pass. Returns the fresh awards.
func (s *GamificationService) EvaluateUser(ctx context.Context, userID string) ([]*models.BadgeAward, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	env := stats.Env()

	badges, err := s.badges.ListActiveBadges(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list badges", err)
	}

	awarded := make([]*models.BadgeAward, 0)
	for _, badge := range badges {
		pass, err := s.engine.EvaluateBool(badge.Criteria, env)
		if err != nil {
			log.Printf("⚠️ Badge '%s' has a broken criteria expression: %v", badge.Name, err)
			continue
		}
		if !pass {
			continue
		}

		award := &models.BadgeAward{
			ID:      utils.GenerateID(),
			BadgeID: badge.ID,
			UserID:  userID,
		}
		fresh, err := s.badges.Award(ctx, award)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to award badge", err)
		}
		if !fresh {
			continue
		}

		award.BadgeName = badge.Name
		award.BadgePoints = badge.Points
		awarded = append(awarded, award)

		if err := s.outbox.Enqueue(ctx, nil, events.BadgeAwarded, events.Payload{
			ObjectID:     badge.ID,
			ObjectType:   "badge",
			RecipientIDs: []string{userID},
			Title:        "Badge earned: " + badge.Name,
			Body:         badge.Description,
			Link:         "/profile/badges",
		}); err != nil {
			log.Printf("⚠️ Failed to enqueue badge.awarded: %v", err)
		}
		log.Printf("✅ Badge '%s' awarded to %s", badge.Name, userID)
	}
	return awarded, nil
}

// BadgeProgress pairs a badge with whether the user's current stats meet it.
type BadgeProgress struct {
	Badge *models.Badge `json:"badge"`
	Met   bool          `json:"met"`
}

// Progress evaluates every active badge against the user's stats without
// awarding anything.
func (s *GamificationService) Progress(ctx context.Context, userID string) ([]*BadgeProgress, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	env := stats.Env()

	badges, err := s.badges.ListActiveBadges(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list badges", err)
	}

	progress := make([]*BadgeProgress, 0, len(badges))
	for _, badge := range badges {
		met, err := s.engine.EvaluateBool(badge.Criteria, env)
		if err != nil {
			log.Printf("⚠️ Badge '%s' has a broken criteria expression: %v", badge.Name, err)
			continue
		}
		progress = append(progress, &BadgeProgress{Badge: badge, Met: met})
	}
	return progress, nil
}

// CreateBadgeRequest is the admin badge authoring surface.
type CreateBadgeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Criteria    string `json:"criteria" binding:"required"`
	Points      int    `json:"points"`
}

// CreateBadge validates the criteria expression before storing.
func (s *GamificationService) CreateBadge(ctx context.Context, actor *auth.UserSession, req CreateBadgeRequest) (*models.Badge, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("create", "badge")
	}
	if err := s.engine.Validate(req.Criteria); err != nil {
		return nil, apperrors.NewValidationError("criteria", err.Error())
	}
	if req.Points < 0 {
		return nil, apperrors.NewValidationError("points", "points must be non-negative")
	}

	badge := &models.Badge{
		ID:          utils.GenerateID(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Icon:        req.Icon,
		Criteria:    req.Criteria,
		Points:      req.Points,
		IsActive:    true,
	}
	if err := s.badges.CreateBadge(ctx, badge); err != nil {
		return nil, apperrors.NewInternalError("failed to create badge", err)
	}
	return badge, nil
}

// SetBadgeActive toggles a badge without losing past awards.
func (s *GamificationService) SetBadgeActive(ctx context.Context, actor *auth.UserSession, badgeID string, active bool) error {
	if !actor.IsAdmin() {
		return apperrors.NewPermissionError("update", "badge")
	}
	badge, err := s.badges.GetBadge(ctx, badgeID)
	if err != nil {
		return apperrors.NewInternalError("failed to load badge", err)
	}
	if badge == nil {
		return apperrors.NewNotFoundError("badge", badgeID)
	}
	return s.badges.UpdateBadge(ctx, badgeID, map[string]interface{}{"is_active": active})
}

func (s *GamificationService) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	return s.badges.ListAllBadges(ctx)
}

func (s *GamificationService) ListAwards(ctx context.Context, userID string) ([]*models.BadgeAward, error) {
	return s.badges.ListAwardsForUser(ctx, userID)
}

func (s *GamificationService) Leaderboard(ctx context.Context, limit int) ([]*persistence.LeaderboardEntry, error) {
	return s.badges.Leaderboard(ctx, limit)
}
