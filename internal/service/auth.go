package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/ContactsGo/internal/auth"
	"github.com/utafrali/ContactsGo/internal/cache"
	"github.com/utafrali/ContactsGo/internal/domain"
	"github.com/utafrali/ContactsGo/internal/event"
	"github.com/utafrali/ContactsGo/internal/repository"
	apperrors "github.com/utafrali/ContactsGo/pkg/errors"
	"github.com/utafrali/ContactsGo/pkg/middleware"
	"github.com/utafrali/ContactsGo/pkg/validator"
)

// PasswordRules is the validator tag applied to every new password. bcrypt
// ignores input beyond 72 bytes.
const PasswordRules = "required,min=5,max=72"

// Notifier sends account emails.
type Notifier interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// AuthService implements registration, login, token refresh and the
// email verification and password reset flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	notifier   Notifier
	cache      cache.UserCache
	producer   *event.Producer
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	notifier Notifier,
	userCache cache.UserCache,
	producer *event.Producer,
	bcryptCost int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		notifier:   notifier,
		cache:      userCache,
		producer:   producer,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an unverified account and mails a verification link.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	if err := validator.Var("password", password, PasswordRules); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	s.sendVerification(ctx, user)

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login checks the credentials and issues an access/refresh pair. Unknown
// email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.InfoContext(ctx, "login rejected", slog.Int64("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	userID, err := s.tokens.Validate(refreshToken, auth.KindRefresh)
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", slog.String("reason", err.Error()))
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.Unauthorized("User not found")
		}
		return nil, err
	}

	return s.issuePair(userID)
}

// Authenticate resolves an access token to its principal. It satisfies
// middleware.Authenticator.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*middleware.Principal, error) {
	userID, err := s.tokens.Validate(token, auth.KindAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve token subject %d: %w", userID, err)
	}

	return &middleware.Principal{UserID: user.ID, Email: user.Email}, nil
}

// VerifyEmail redeems a verification token. Redeeming it again succeeds
// without further changes.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Validate(token, auth.KindVerify)
	if err != nil {
		return nil, apperrors.InvalidToken(err)
	}

	before, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if before.IsVerified {
		return before, nil
	}

	user, err := s.users.MarkVerified(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)

	if err := s.producer.PublishUserVerified(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.verified event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "email verified", slog.Int64("user_id", user.ID))
	return user, nil
}

// RequestVerification re-sends the verification link. Unknown and already
// verified addresses are ignored so the caller learns nothing.
func (s *AuthService) RequestVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}
	s.sendVerification(ctx, user)
	return nil
}

// RequestPasswordReset mails a reset token. Unknown addresses are ignored.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := s.tokens.Issue(user.ID, auth.KindReset)
	if err != nil {
		return err
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.WarnContext(ctx, "failed to send password reset email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.logger.InfoContext(ctx, "password reset requested", slog.Int64("user_id", user.ID))
	return nil
}

// ResetPassword redeems a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.tokens.Validate(token, auth.KindReset)
	if err != nil {
		return apperrors.InvalidToken(err)
	}
	if err := validator.Var("new_password", newPassword, PasswordRules); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		return err
	}
	s.invalidate(ctx, userID)

	if err := s.producer.PublishUserPasswordReset(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset", slog.Int64("user_id", userID))
	return nil
}

func (s *AuthService) issuePair(userID int64) (*domain.TokenPair, error) {
	access, refresh, err := s.tokens.IssuePair(userID)
	if err != nil {
		return nil, fmt.Errorf("issue token pair: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// sendVerification is best-effort: a mail failure never fails the request.
func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) {
	token, err := s.tokens.Issue(user.ID, auth.KindVerify)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue verification token",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.notifier.SendVerification(ctx, user.Email, token); err != nil {
		s.logger.WarnContext(ctx, "failed to send verification email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AuthService) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate user cache",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
