package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/utafrali/ContactsGo/internal/domain"
	"github.com/utafrali/ContactsGo/pkg/validator"
)

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=5,max=72"`
}

// TokenForm is the form body of POST /auth/token. username carries the email.
type TokenForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// RefreshRequest is the JSON request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// EmailRequest is the JSON body of the verification and reset request
// endpoints.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string in YYYY-MM-DD format")
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("date %q is not in YYYY-MM-DD format", s)
	}
	d.Time = t
	return nil
}

// ContactRequest is the body of POST /contacts and PUT /contacts/{id}.
type ContactRequest struct {
	FirstName      string  `json:"first_name" validate:"required,min=1,max=50"`
	LastName       string  `json:"last_name" validate:"required,min=1,max=50"`
	Email          *string `json:"email" validate:"omitnil,email,max=100"`
	Phone          *string `json:"phone" validate:"omitnil,max=20"`
	Birthday       *Date   `json:"birthday"`
	AdditionalInfo *string `json:"additional_info" validate:"omitnil,max=500"`
}

func (r ContactRequest) fields() domain.ContactFields {
	f := domain.ContactFields{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		AdditionalInfo: r.AdditionalInfo,
	}
	if r.Birthday != nil {
		t := r.Birthday.Time
		f.Birthday = &t
	}
	return f
}

// optional records whether a JSON field was present and whether it was null.
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o optional[T]) nullable() domain.Nullable[T] {
	switch {
	case !o.Set:
		return domain.Nullable[T]{}
	case o.Null:
		return domain.Null[T]()
	default:
		return domain.Of(o.Value)
	}
}

// ContactPatchRequest is the body of PATCH /contacts/{id}. Absent fields are
// left unchanged and null clears an optional field.
type ContactPatchRequest struct {
	FirstName      optional[string] `json:"first_name"`
	LastName       optional[string] `json:"last_name"`
	Email          optional[string] `json:"email"`
	Phone          optional[string] `json:"phone"`
	Birthday       optional[Date]   `json:"birthday"`
	AdditionalInfo optional[string] `json:"additional_info"`
}

func (r ContactPatchRequest) patch() (domain.ContactPatch, error) {
	valErr := &validator.ValidationError{}
	p := domain.ContactPatch{
		Email:          r.Email.nullable(),
		Phone:          r.Phone.nullable(),
		AdditionalInfo: r.AdditionalInfo.nullable(),
	}

	if r.FirstName.Set {
		if r.FirstName.Null {
			valErr.Add("first_name", "cannot be null")
		} else {
			p.FirstName = &r.FirstName.Value
		}
	}
	if r.LastName.Set {
		if r.LastName.Null {
			valErr.Add("last_name", "cannot be null")
		} else {
			p.LastName = &r.LastName.Value
		}
	}

	switch {
	case !r.Birthday.Set:
	case r.Birthday.Null:
		p.Birthday = domain.Null[time.Time]()
	default:
		p.Birthday = domain.Of(r.Birthday.Value.Time)
	}

	if err := valErr.OrNil(); err != nil {
		return domain.ContactPatch{}, err
	}
	return p, nil
}

// --- Response types ---

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	IsActive   bool    `json:"is_active"`
	IsVerified bool    `json:"is_verified"`
	AvatarURL  *string `json:"avatar_url"`
}

func toUserResponse(s *domain.UserSummary) UserResponse {
	return UserResponse{
		ID:         s.ID,
		Email:      s.Email,
		IsActive:   true,
		IsVerified: s.IsVerified,
		AvatarURL:  s.AvatarURL,
	}
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}

func toTokenResponse(p *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  p.AccessToken,
		TokenType:    "bearer",
		RefreshToken: p.RefreshToken,
	}
}

// ContactResponse is the public view of a contact.
type ContactResponse struct {
	ID             int64     `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	Birthday       *Date     `json:"birthday"`
	AdditionalInfo *string   `json:"additional_info"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toContactResponse(c *domain.Contact) ContactResponse {
	resp := ContactResponse{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		AdditionalInfo: c.AdditionalInfo,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Birthday != nil {
		resp.Birthday = &Date{Time: *c.Birthday}
	}
	return resp
}

func toContactResponses(cs []domain.Contact) []ContactResponse {
	out := make([]ContactResponse, len(cs))
	for i := range cs {
		out[i] = toContactResponse(&cs[i])
	}
	return out
}
