package repository

import (
	"context"

	"github.com/utafrali/ContactsGo/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
// Every mutation is a single statement.
type UserRepository interface {
	// Create inserts a new user and returns it with generated fields set.
	// A taken email yields domain.ErrDuplicateEmail.
	Create(ctx context.Context, email, passwordHash string) (*domain.User, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by exact email match.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// MarkVerified sets is_verified. Repeating it is a no-op.
	MarkVerified(ctx context.Context, id int64) (*domain.User, error)

	// SetPassword replaces the stored password hash.
	SetPassword(ctx context.Context, id int64, passwordHash string) error

	// SetAvatar stores the avatar URL and returns the updated user.
	SetAvatar(ctx context.Context, id int64, url string) (*domain.User, error)
}

// ContactRepository defines owner-scoped contact persistence. A contact that
// exists but belongs to someone else is reported as domain.ErrContactNotFound.
type ContactRepository interface {
	// Create inserts c and fills in its id and timestamps.
	Create(ctx context.Context, c *domain.Contact) error

	// GetByID retrieves one of the owner's contacts.
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Contact, error)

	// List returns a page of the owner's contacts ordered by id.
	List(ctx context.Context, ownerID int64, offset, limit int) ([]domain.Contact, error)

	// ListWithBirthday returns all of the owner's contacts that have a birthday.
	ListWithBirthday(ctx context.Context, ownerID int64) ([]domain.Contact, error)

	// Update writes every editable field of c, matched on c.ID and c.OwnerID,
	// and refreshes c.UpdatedAt.
	Update(ctx context.Context, c *domain.Contact) error

	// Delete removes the contact and reports whether a row was removed.
	Delete(ctx context.Context, ownerID, id int64) (bool, error)
}
