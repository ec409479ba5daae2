package domain

import (
	apperrors "github.com/utafrali/ContactsGo/pkg/errors"
)

// Domain errors. Each wraps a pkg/errors sentinel so generic checks such as
// errors.Is(err, apperrors.ErrNotFound) keep working.
var (
	ErrDuplicateEmail     = apperrors.New(apperrors.ErrAlreadyExists, "User already exists")
	ErrConflictingContact = apperrors.Conflict("Phone or email already exists")
	ErrInvalidCredentials = apperrors.Unauthorized("Incorrect credentials")
	ErrUserNotFound       = apperrors.New(apperrors.ErrNotFound, "User not found")

	// ErrContactNotFound is returned both when a contact does not exist and
	// when it belongs to another user.
	ErrContactNotFound = apperrors.New(apperrors.ErrNotFound, "Contact not found")
)

// Avatar upload errors.
var (
	ErrAvatarNotImage = apperrors.New(apperrors.ErrInvalidInput, "File must be an image")
	ErrAvatarTooLarge = apperrors.Newf(apperrors.ErrTooLarge, "File exceeds the %d MB limit", MaxAvatarSize>>20)
)
