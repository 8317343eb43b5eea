package services

import (
	"context"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/payout"
)

// UserService covers profile management and the admin-side user directory.
type UserService struct {
	users    *persistence.UserRepository
	sessions *persistence.SessionRepository
	payouts  *persistence.PayoutRepository
	audit    *AuditService
}

func NewUserService(users *persistence.UserRepository, sessions *persistence.SessionRepository, payouts *persistence.PayoutRepository, audit *AuditService) *UserService {
	return &UserService{users: users, sessions: sessions, payouts: payouts, audit: audit}
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user", userID)
	}
	return user, nil
}

// List returns all users. Admin only.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.FindAll(ctx)
}

// UpdateProfileRequest is the self-service profile update surface. Role and
// R-bounds deliberately absent: those are admin fields.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperrors.NewValidationError("name", "name cannot be empty")
		}
		updates[constants.FieldName] = *req.Name
	}
	if req.FirstName != nil {
		updates[constants.FieldUserFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[constants.FieldUserLastName] = *req.LastName
	}

	if err := s.users.UpdateUser(ctx, userID, updates); err != nil {
		return nil, apperrors.NewInternalError("failed to update profile", err)
	}
	return s.Get(ctx, userID)
}

// AdminUpdateRequest is the admin-side user update: role, activation,
// compensation fields and R-bounds.
type AdminUpdateRequest struct {
	Role       *string  `json:"role"`
	IsActive   *bool    `json:"is_active"`
	BaseSalary *float64 `json:"base_salary"`
	RMin       *float64 `json:"r_min"`
	RMax       *float64 `json:"r_max"`
}

func (s *UserService) AdminUpdate(ctx context.Context, actor *auth.UserSession, userID string, req AdminUpdateRequest) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Role != nil {
		if !constants.IsValidRole(*req.Role) {
			return nil, apperrors.NewValidationError("role", "unknown role")
		}
		updates[constants.FieldRole] = *req.Role
	}
	if req.BaseSalary != nil {
		if *req.BaseSalary < 0 {
			return nil, apperrors.NewValidationError("base_salary", "must be non-negative")
		}
		updates[constants.FieldUserBaseSalary] = *req.BaseSalary
	}

	rMin, rMax := user.RMin, user.RMax
	if req.RMin != nil {
		rMin = *req.RMin
	}
	if req.RMax != nil {
		rMax = *req.RMax
	}
	if req.RMin != nil || req.RMax != nil {
		if rMin < 0 || rMax > 1 || rMin > rMax {
			return nil, apperrors.NewValidationError("r_bounds", "bounds must satisfy 0 <= r_min <= r_max <= 1")
		}
		updates[constants.FieldUserRMin] = rMin
		updates[constants.FieldUserRMax] = rMax
		// Re-clamp the user's chosen ratio into the new bounds.
		updates[constants.FieldUserR] = payout.RBounds{Min: rMin, Max: rMax}.ClampR(user.R)
	}

	if req.IsActive != nil && !*req.IsActive {
		if err := s.users.Deactivate(ctx, userID); err != nil {
			return nil, apperrors.NewInternalError("failed to deactivate user", err)
		}
		if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
			return nil, apperrors.NewInternalError("failed to revoke sessions", err)
		}
	} else if req.IsActive != nil {
		updates[constants.FieldUserIsActive] = true
	}

	if err := s.users.UpdateUser(ctx, userID, updates); err != nil {
		return nil, apperrors.NewInternalError("failed to update user", err)
	}

	s.audit.Log(ctx, "", actor.ID, "user.admin_updated", "user", userID, "")
	return s.Get(ctx, userID)
}

// SetR lets a user pick their own salary ratio. The value is clamped into
// their bounds rather than rejected.
func (s *UserService) SetR(ctx context.Context, userID string, r float64) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	clamped := payout.RBounds{Min: user.RMin, Max: user.RMax}.ClampR(r)
	if err := s.users.UpdateUser(ctx, userID, map[string]interface{}{constants.FieldUserR: clamped}); err != nil {
		return nil, apperrors.NewInternalError("failed to update ratio", err)
	}
	user.R = clamped
	return user, nil
}

// SalaryProjection computes the user's compensation mix from their base
// salary and released performance earnings.
func (s *UserService) SalaryProjection(ctx context.Context, userID string) (*payout.MixResult, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	earned, err := s.payouts.TotalEarned(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sum earnings", err)
	}

	mix := payout.Mix(user.R, payout.RBounds{Min: user.RMin, Max: user.RMax}, user.BaseSalary, earned)
	return &mix, nil
}
