package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/ContactsGo/internal/domain"
	pkgkafka "github.com/utafrali/ContactsGo/pkg/kafka"
	"github.com/utafrali/ContactsGo/pkg/logger"
)

// Kafka topics for contacts domain events.
var (
	TopicUserRegistered    = pkgkafka.Topic("user", "registered")
	TopicUserVerified      = pkgkafka.Topic("user", "verified")
	TopicUserPasswordReset = pkgkafka.Topic("user", "password_reset")
	TopicUserAvatarUpdated = pkgkafka.Topic("user", "avatar_updated")

	TopicContactCreated = pkgkafka.Topic("contact", "created")
	TopicContactUpdated = pkgkafka.Topic("contact", "updated")
	TopicContactDeleted = pkgkafka.Topic("contact", "deleted")
)

// Aggregate types.
const (
	AggregateTypeUser    = "user"
	AggregateTypeContact = "contact"
)

// SourceContactsService identifies events originating from this service.
const SourceContactsService = "contacts-service"

// UserData is the payload of every user.* event.
type UserData struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	IsVerified bool    `json:"is_verified"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

// ContactData is the payload of contact.created and contact.updated.
type ContactData struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Birthday  *string   `json:"birthday,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactDeletedData is the payload of contact.deleted.
type ContactDeletedData struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"owner_id"`
}

// Producer publishes domain events. A Producer built without a Kafka
// producer is disabled and every publish is a no-op.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer. kafka may be nil.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// Enabled reports whether events are actually published.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishUserRegistered publishes contacts.user.registered.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, userData(u))
}

// PublishUserVerified publishes contacts.user.verified.
func (p *Producer) PublishUserVerified(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserVerified, u.ID, userData(u))
}

// PublishUserPasswordReset publishes contacts.user.password_reset.
func (p *Producer) PublishUserPasswordReset(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserPasswordReset, u.ID, userData(u))
}

// PublishUserAvatarUpdated publishes contacts.user.avatar_updated.
func (p *Producer) PublishUserAvatarUpdated(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserAvatarUpdated, u.ID, userData(u))
}

// PublishContactCreated publishes contacts.contact.created.
func (p *Producer) PublishContactCreated(ctx context.Context, c *domain.Contact) error {
	return p.publish(ctx, TopicContactCreated, c.ID, contactData(c))
}

// PublishContactUpdated publishes contacts.contact.updated.
func (p *Producer) PublishContactUpdated(ctx context.Context, c *domain.Contact) error {
	return p.publish(ctx, TopicContactUpdated, c.ID, contactData(c))
}

// PublishContactDeleted publishes contacts.contact.deleted.
func (p *Producer) PublishContactDeleted(ctx context.Context, ownerID, contactID int64) error {
	return p.publish(ctx, TopicContactDeleted, contactID,
		ContactDeletedData{ID: contactID, OwnerID: ownerID})
}

func (p *Producer) publish(ctx context.Context, topic string, aggregateID int64, data any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, SourceContactsService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

func userData(u *domain.User) UserData {
	return UserData{
		ID:         u.ID,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		AvatarURL:  u.AvatarURL,
	}
}

func contactData(c *domain.Contact) ContactData {
	d := ContactData{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Birthday != nil {
		b := c.Birthday.Format(time.DateOnly)
		d.Birthday = &b
	}
	return d
}
