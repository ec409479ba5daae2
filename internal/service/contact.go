package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/ContactsGo/internal/domain"
	"github.com/utafrali/ContactsGo/internal/event"
	"github.com/utafrali/ContactsGo/internal/repository"
	"github.com/utafrali/ContactsGo/pkg/validator"
)

// contactRules carries the field constraints checked after a patch is
// applied. Create and full update are validated on the request DTO.
type contactRules struct {
	FirstName      string  `json:"first_name" validate:"required,min=1,max=50"`
	LastName       string  `json:"last_name" validate:"required,min=1,max=50"`
	Email          *string `json:"email" validate:"omitnil,email,max=100"`
	Phone          *string `json:"phone" validate:"omitnil,max=20"`
	AdditionalInfo *string `json:"additional_info" validate:"omitnil,max=500"`
}

func validateContact(c *domain.Contact) error {
	return validator.Validate(contactRules{
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		AdditionalInfo: c.AdditionalInfo,
	})
}

// ContactService implements owner-scoped contact operations. The owner always
// comes from the authenticated session.
type ContactService struct {
	contacts repository.ContactRepository
	producer *event.Producer
	now      func() time.Time
	logger   *slog.Logger
}

// NewContactService creates a new contact service.
func NewContactService(contacts repository.ContactRepository, producer *event.Producer, logger *slog.Logger) *ContactService {
	return &ContactService{
		contacts: contacts,
		producer: producer,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the clock used to determine "today".
func (s *ContactService) WithClock(now func() time.Time) *ContactService {
	s.now = now
	return s
}

// Create stores a new contact for owner.
func (s *ContactService) Create(ctx context.Context, ownerID int64, fields domain.ContactFields) (*domain.Contact, error) {
	c := domain.NewContact(ownerID, fields)
	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, err
	}

	if err := s.producer.PublishContactCreated(ctx, c); err != nil {
		s.logEventError(ctx, event.TopicContactCreated, c.ID, err)
	}

	s.logger.InfoContext(ctx, "contact created",
		slog.Int64("contact_id", c.ID),
		slog.Int64("owner_id", ownerID),
	)
	return c, nil
}

// Get returns one of the owner's contacts.
func (s *ContactService) Get(ctx context.Context, ownerID, id int64) (*domain.Contact, error) {
	return s.contacts.GetByID(ctx, ownerID, id)
}

// List returns a page of the owner's contacts in insertion order.
func (s *ContactService) List(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Contact, error) {
	return s.contacts.List(ctx, ownerID, skip, limit)
}

// UpdateFull replaces every editable field of the contact.
func (s *ContactService) UpdateFull(ctx context.Context, ownerID, id int64, fields domain.ContactFields) (*domain.Contact, error) {
	c, err := s.contacts.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	c.Replace(fields)
	return s.store(ctx, c)
}

// UpdatePartial applies only the fields present in patch.
func (s *ContactService) UpdatePartial(ctx context.Context, ownerID, id int64, patch domain.ContactPatch) (*domain.Contact, error) {
	c, err := s.contacts.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return c, nil
	}

	patch.Apply(c)
	if err := validateContact(c); err != nil {
		return nil, err
	}
	return s.store(ctx, c)
}

// Delete removes one of the owner's contacts.
func (s *ContactService) Delete(ctx context.Context, ownerID, id int64) error {
	deleted, err := s.contacts.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrContactNotFound
	}

	if err := s.producer.PublishContactDeleted(ctx, ownerID, id); err != nil {
		s.logEventError(ctx, event.TopicContactDeleted, id, err)
	}

	s.logger.InfoContext(ctx, "contact deleted",
		slog.Int64("contact_id", id),
		slog.Int64("owner_id", ownerID),
	)
	return nil
}

// UpcomingBirthdays returns the owner's contacts whose next birthday falls
// within days of today (UTC), soonest first.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID int64, days int) ([]domain.Contact, error) {
	if err := validator.Var("days", days, "gte=0,lte=366"); err != nil {
		return nil, err
	}

	contacts, err := s.contacts.ListWithBirthday(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return domain.UpcomingBirthdays(contacts, s.now().UTC(), days), nil
}

func (s *ContactService) store(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	if err := s.contacts.Update(ctx, c); err != nil {
		return nil, err
	}

	if err := s.producer.PublishContactUpdated(ctx, c); err != nil {
		s.logEventError(ctx, event.TopicContactUpdated, c.ID, err)
	}

	s.logger.InfoContext(ctx, "contact updated",
		slog.Int64("contact_id", c.ID),
		slog.Int64("owner_id", c.OwnerID),
	)
	return c, nil
}

func (s *ContactService) logEventError(ctx context.Context, topic string, contactID int64, err error) {
	s.logger.ErrorContext(ctx, "failed to publish contact event",
		slog.String("topic", topic),
		slog.Int64("contact_id", contactID),
		slog.String("error", err.Error()),
	)
}
