package domain

import (
	"time"
)

// Contact is an address-book entry owned by exactly one user.
type Contact struct {
	ID             int64
	OwnerID        int64
	FirstName      string
	LastName       string
	Email          *string
	Phone          *string
	Birthday       *time.Time
	AdditionalInfo *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContactFields are the user-editable fields of a contact, used for create
// and full replacement.
type ContactFields struct {
	FirstName      string
	LastName       string
	Email          *string
	Phone          *string
	Birthday       *time.Time
	AdditionalInfo *string
}

// Replace overwrites every editable field of c with f.
func (c *Contact) Replace(f ContactFields) {
	c.FirstName = f.FirstName
	c.LastName = f.LastName
	c.Email = f.Email
	c.Phone = f.Phone
	c.Birthday = dateOnly(f.Birthday)
	c.AdditionalInfo = f.AdditionalInfo
}

// NewContact builds an unsaved contact for owner.
func NewContact(ownerID int64, f ContactFields) *Contact {
	c := &Contact{OwnerID: ownerID}
	c.Replace(f)
	return c
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Date(*t)
	return &d
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
