package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ContactsGo/internal/domain"
	"github.com/utafrali/ContactsGo/pkg/database"
)

const contactColumns = `id, owner_id, first_name, last_name, email, phone, birthday, additional_info, created_at, updated_at`

const (
	insertContactQuery = `
		INSERT INTO contacts (owner_id, first_name, last_name, email, phone, birthday, additional_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	getContactQuery = `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND owner_id = $2`

	listContactsQuery = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE owner_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	listBirthdaysQuery = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE owner_id = $1 AND birthday IS NOT NULL
		ORDER BY id`

	updateContactQuery = `
		UPDATE contacts
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
		    birthday = $5, additional_info = $6, updated_at = now()
		WHERE id = $7 AND owner_id = $8
		RETURNING updated_at`

	deleteContactQuery = `DELETE FROM contacts WHERE id = $1 AND owner_id = $2`
)

// ContactRepository implements repository.ContactRepository using PostgreSQL.
type ContactRepository struct {
	db database.DBTX
}

// NewContactRepository creates a new PostgreSQL-backed contact repository.
func NewContactRepository(db database.DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a new contact.
func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateContact", insertContactQuery)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, insertContactQuery,
		c.OwnerID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Birthday,
		c.AdditionalInfo,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return domain.ErrConflictingContact
		}
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// GetByID retrieves one contact scoped to its owner.
func (r *ContactRepository) GetByID(ctx context.Context, ownerID, id int64) (c *domain.Contact, err error) {
	ctx, end := database.TraceQuery(ctx, "GetContact", getContactQuery)
	defer func() { end(err) }()

	c, err = scanContact(r.db.QueryRow(ctx, getContactQuery, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	return c, nil
}

// List returns a page of the owner's contacts.
func (r *ContactRepository) List(ctx context.Context, ownerID int64, offset, limit int) (cs []domain.Contact, err error) {
	ctx, end := database.TraceQuery(ctx, "ListContacts", listContactsQuery)
	defer func() { end(err) }()

	return r.query(ctx, listContactsQuery, ownerID, limit, offset)
}

// ListWithBirthday returns every contact of the owner that has a birthday.
func (r *ContactRepository) ListWithBirthday(ctx context.Context, ownerID int64) (cs []domain.Contact, err error) {
	ctx, end := database.TraceQuery(ctx, "ListContactBirthdays", listBirthdaysQuery)
	defer func() { end(err) }()

	return r.query(ctx, listBirthdaysQuery, ownerID)
}

// Update writes all editable fields of c.
func (r *ContactRepository) Update(ctx context.Context, c *domain.Contact) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateContact", updateContactQuery)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, updateContactQuery,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Birthday,
		c.AdditionalInfo,
		c.ID,
		c.OwnerID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrContactNotFound
		}
		if _, ok := database.IsUniqueViolation(err); ok {
			return domain.ErrConflictingContact
		}
		return fmt.Errorf("update contact: %w", err)
	}
	return nil
}

// Delete removes one contact scoped to its owner.
func (r *ContactRepository) Delete(ctx context.Context, ownerID, id int64) (deleted bool, err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteContact", deleteContactQuery)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, deleteContactQuery, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete contact: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *ContactRepository) query(ctx context.Context, query string, args ...any) ([]domain.Contact, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]domain.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact row: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Birthday,
		&c.AdditionalInfo,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
