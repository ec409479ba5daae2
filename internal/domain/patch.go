package domain

import "time"

// Nullable is a patch value that distinguishes "absent" (Set false) from an
// explicit null (Set true, Value nil).
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Of returns a Nullable that sets the field to v.
func Of[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// ContactPatch carries only the fields present in a partial update. The
// names are required fields, so they can be replaced but never cleared.
type ContactPatch struct {
	FirstName      *string
	LastName       *string
	Email          Nullable[string]
	Phone          Nullable[string]
	Birthday       Nullable[time.Time]
	AdditionalInfo Nullable[string]
}

// IsEmpty reports whether the patch changes nothing.
func (p ContactPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil &&
		!p.Email.Set && !p.Phone.Set && !p.Birthday.Set && !p.AdditionalInfo.Set
}

// Apply writes the present fields of p onto c.
func (p ContactPatch) Apply(c *Contact) {
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Email.Set {
		c.Email = p.Email.Value
	}
	if p.Phone.Set {
		c.Phone = p.Phone.Value
	}
	if p.Birthday.Set {
		c.Birthday = dateOnly(p.Birthday.Value)
	}
	if p.AdditionalInfo.Set {
		c.AdditionalInfo = p.AdditionalInfo.Value
	}
}
