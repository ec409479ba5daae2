package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ContactsGo/internal/domain"
	"github.com/utafrali/ContactsGo/pkg/database"
)

const userColumns = `id, email, password_hash, is_verified, avatar_url, created_at, updated_at`

const (
	insertUserQuery = `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	getUserByIDQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	markVerifiedQuery = `
		UPDATE users
		SET is_verified = TRUE,
		    updated_at = CASE WHEN is_verified THEN updated_at ELSE now() END
		WHERE id = $1
		RETURNING ` + userColumns

	setPasswordQuery = `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`

	setAvatarQuery = `
		UPDATE users
		SET avatar_url = $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + userColumns
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, email, passwordHash string) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "CreateUser", insertUserQuery)
	defer func() { end(err) }()

	u, err = scanUser(r.db.QueryRow(ctx, insertUserQuery, email, passwordHash))
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "GetUserByID", getUserByIDQuery)
	defer func() { end(err) }()

	return r.getOne(ctx, getUserByIDQuery, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "GetUserByEmail", getUserByEmailQuery)
	defer func() { end(err) }()

	return r.getOne(ctx, getUserByEmailQuery, email)
}

// MarkVerified flags the user as verified.
func (r *UserRepository) MarkVerified(ctx context.Context, id int64) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "MarkUserVerified", markVerifiedQuery)
	defer func() { end(err) }()

	return r.getOne(ctx, markVerifiedQuery, id)
}

// SetPassword stores a new password hash.
func (r *UserRepository) SetPassword(ctx context.Context, id int64, passwordHash string) (err error) {
	ctx, end := database.TraceQuery(ctx, "SetUserPassword", setPasswordQuery)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, setPasswordQuery, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetAvatar stores the avatar URL.
func (r *UserRepository) SetAvatar(ctx context.Context, id int64, url string) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "SetUserAvatar", setAvatarQuery)
	defer func() { end(err) }()

	return r.getOne(ctx, setAvatarQuery, url, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.IsVerified,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
