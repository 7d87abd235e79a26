package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/auth"
	"github.com/spec-kit/sac-service/internal/config"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/events"
	"github.com/spec-kit/sac-service/internal/remotesync"
	"github.com/spec-kit/sac-service/internal/repository"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

// AuthService coordinates login and password flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	syncer     *remotesync.Syncer
	dispatcher events.Dispatcher
	clock      domain.Clock
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Syncer            *remotesync.Syncer
	Dispatcher        events.Dispatcher
	Clock             domain.Clock
	Logger            *zap.Logger
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User          *domain.User
	Token         string
	ExpiresAt     time.Time
	ExternalToken string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		syncer:     deps.Syncer,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   cfg.Auth.PasswordResetTTL(),
	}
}

// Login checks credentials locally and issues a JWT. The webhook is asked for
// an external token; its failure never fails the login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	result := &LoginResult{User: user, Token: token, ExpiresAt: exp}

	resp, err := s.syncer.Call(ctx, remotesync.ActionAuthLogin, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})
	if err == nil {
		result.ExternalToken = resp.String("token")
	}
	return result, nil
}

// RequestPasswordReset stores a reset token for a known email. Unknown emails
// return nil without error so callers cannot probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}

	now := s.clock.Now()
	token := &domain.PasswordResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Save(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		event := events.New(events.EventPasswordResetRequested, "", user.ID, now, events.PasswordResetRequestedPayload{
			UserID:    user.ID,
			Email:     user.Email,
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
	return token, nil
}

// ConfirmPasswordReset sets a new password using an unused, unexpired token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	token, err := s.resets.Get(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("invalid or expired token", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || !s.clock.Now().Before(token.ExpiresAt) {
		return apperrors.NewValidationError("invalid or expired token", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return userError(err, token.UserID)
	}
	// claim the token before touching the password; a second confirm loses here
	if err := s.resets.MarkUsed(ctx, token.Token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("invalid or expired token", nil)
		}
		return apperrors.MapError(err)
	}
	return s.setPassword(ctx, user, newPassword)
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return userError(err, userID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
	}
	return nil
}

func userError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	return apperrors.MapError(err)
}
