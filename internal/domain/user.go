package domain

import (
	"strconv"
	"strings"
	"time"
)

// MaxAvatarSize is the largest accepted avatar upload in bytes (5 MB).
const MaxAvatarSize int64 = 5 * 1024 * 1024

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"is_verified"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary is the public projection of a user. It is also the value
// stored in the user cache.
type UserSummary struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	IsVerified bool    `json:"is_verified"`
	AvatarURL  *string `json:"avatar_url"`
}

// Summary projects u onto its public fields.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:         u.ID,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		AvatarURL:  u.AvatarURL,
	}
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AvatarKey is the object-store key for a user's avatar. Re-uploads overwrite
// the same object.
func AvatarKey(userID int64) string {
	return "contacts_avatars/user-" + strconv.FormatInt(userID, 10)
}

// IsImageContentType reports whether ct is an image/* media type.
func IsImageContentType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "image/")
}
