package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/utafrali/ContactsGo/internal/cache"
	"github.com/utafrali/ContactsGo/internal/domain"
	"github.com/utafrali/ContactsGo/internal/event"
	"github.com/utafrali/ContactsGo/internal/repository"
	"github.com/utafrali/ContactsGo/internal/storage"
	"github.com/utafrali/ContactsGo/pkg/breaker"
	apperrors "github.com/utafrali/ContactsGo/pkg/errors"
)

// AvatarUpload is an image to store as the user's avatar.
type AvatarUpload struct {
	ContentType string
	Size        int64
	Data        io.ReadSeeker
}

// UserService serves the current user's profile and avatar.
type UserService struct {
	users    repository.UserRepository
	cache    cache.UserCache
	store    storage.Storage
	producer *event.Producer
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	userCache cache.UserCache,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		cache:    userCache,
		store:    store,
		producer: producer,
		logger:   logger,
	}
}

// Me returns the user's summary, reading through the cache.
func (s *UserService) Me(ctx context.Context, userID int64) (*domain.UserSummary, error) {
	summary, err := s.cache.Get(ctx, userID)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "user cache read failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary = user.Summary()
	if err := s.cache.Set(ctx, summary); err != nil {
		s.logger.WarnContext(ctx, "user cache write failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return summary, nil
}

// UploadAvatar stores the image under the user's avatar key and records its
// URL. Re-uploads overwrite the previous image.
func (s *UserService) UploadAvatar(ctx context.Context, userID int64, upload AvatarUpload) (*domain.User, error) {
	if !domain.IsImageContentType(upload.ContentType) {
		return nil, domain.ErrAvatarNotImage
	}
	if upload.Size > domain.MaxAvatarSize {
		return nil, domain.ErrAvatarTooLarge
	}

	res, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         domain.AvatarKey(userID),
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Data:        upload.Data,
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return nil, apperrors.ServiceUnavailable("Avatar storage unavailable", err)
		}
		return nil, apperrors.Wrap(err, "upload avatar")
	}

	user, err := s.users.SetAvatar(ctx, userID, res.URL)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate user cache",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishUserAvatarUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.avatar_updated event",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "avatar updated",
		slog.Int64("user_id", userID),
		slog.String("key", res.Key),
	)
	return user, nil
}
