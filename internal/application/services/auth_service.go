package services

import (
	"context"
	"log"
	"time"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/utils"
)

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	users    *persistence.UserRepository
	sessions *persistence.SessionRepository
	audit    *AuditService
}

func NewAuthService(users *persistence.UserRepository, sessions *persistence.SessionRepository, audit *AuditService) *AuthService {
	return &AuthService{users: users, sessions: sessions, audit: audit}
}

// RegisterRequest carries a self-service signup.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Name      string `json:"name" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" binding:"required"`
	Role      string `json:"role"`
}

// Register creates a user account. Self-service signups can only take the
// employee or contractor role; everything else is admin-assigned.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if !auth.IsValidEmail(req.Email) {
		return nil, apperrors.NewValidationError("email", "invalid email address")
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, apperrors.NewValidationError("password", err.Error())
	}

	role := req.Role
	if role == "" {
		role = string(constants.RoleEmployee)
	}
	if role != string(constants.RoleEmployee) && role != string(constants.RoleContractor) {
		return nil, apperrors.NewValidationError("role", "self-service registration allows employee or contractor only")
	}

	exists, err := s.users.CheckUserExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check email", err)
	}
	if exists {
		return nil, apperrors.NewConflictError("user", "email", req.Email)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &models.User{
		ID:        utils.GenerateID(),
		Email:     req.Email,
		Name:      req.Name,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		IsActive:  true,
		R:         constants.DefaultR,
		RMin:      constants.DefaultRMin,
		RMax:      constants.DefaultRMax,
	}

	if err := s.users.CreateUser(ctx, user, hash); err != nil {
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	s.audit.Log(ctx, "", user.ID, "user.registered", "user", user.ID, "")
	log.Printf("✅ User registered: %s (%s)", user.Email, user.Role)
	return user, nil
}

// LoginResult bundles the issued token with the authenticated user.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login verifies credentials and issues a JWT plus a revocable session row.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	record, err := s.users.FindUserByEmailWithPassword(ctx, email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up user", err)
	}
	// Burn a bcrypt round on unknown emails too, keeping timing flat.
	if record == nil {
		_ = auth.VerifyPassword(password, "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
	if !record.IsActive {
		return nil, apperrors.NewUnauthorizedError("account is deactivated")
	}
	if !auth.VerifyPassword(password, record.PasswordHash) {
		s.audit.Log(ctx, "", record.ID, "auth.login_failed", "user", record.ID, "")
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	session := auth.UserSession{
		ID:    record.ID,
		Name:  record.Name,
		Email: record.Email,
		Role:  record.Role,
	}
	token, err := auth.GenerateToken(session)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}

	claims, err := auth.DecodeToken(token)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to decode issued token", err)
	}

	if err := s.sessions.CreateSession(ctx, &models.Session{
		ID:        claims.ID,
		UserID:    record.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(constants.SessionLifetime),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}); err != nil {
		return nil, apperrors.NewInternalError("failed to record session", err)
	}

	if err := s.users.TouchLastLogin(ctx, record.ID); err != nil {
		log.Printf("⚠️ Failed to stamp last login for %s: %v", record.ID, err)
	}

	log.Printf("✅ Login: %s", record.Email)
	return &LoginResult{Token: token, User: record.User}, nil
}

// Validate checks a bearer token against both the signature and the session
// table, so revoked tokens die before their JWT expiry.
func (s *AuthService) Validate(ctx context.Context, token string) (*auth.UserSession, error) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check session", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorizedError("session revoked")
	}

	if err := s.sessions.TouchActivity(ctx, claims.ID); err != nil {
		log.Printf("⚠️ Failed to touch session %s: %v", claims.ID, err)
	}
	return &claims.User, nil
}

// Logout revokes the session carried by the token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := auth.DecodeToken(token)
	if err != nil {
		return apperrors.NewUnauthorizedError("invalid token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return apperrors.NewInternalError("failed to revoke session", err)
	}
	return nil
}

// ChangePassword verifies the old password, stores the new hash, and revokes
// every session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return apperrors.NewValidationError("new_password", err.Error())
	}

	record, err := s.users.FindUserByIDWithPassword(ctx, userID)
	if err != nil {
		return apperrors.NewInternalError("failed to look up user", err)
	}
	if record == nil {
		return apperrors.NewNotFoundError("user", userID)
	}
	if !auth.VerifyPassword(oldPassword, record.PasswordHash) {
		return apperrors.NewUnauthorizedError("current password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.NewInternalError("failed to update password", err)
	}
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		log.Printf("⚠️ Failed to revoke sessions for %s after password change: %v", userID, err)
	}

	s.audit.Log(ctx, "", userID, "auth.password_changed", "user", userID, "")
	return nil
}
