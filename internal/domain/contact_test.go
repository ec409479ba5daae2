package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleContact() Contact {
	bday := time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC)
	return Contact{
		ID:             1,
		OwnerID:        9,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          ptr("ada@example.com"),
		Phone:          ptr("+441234"),
		Birthday:       &bday,
		AdditionalInfo: ptr("mathematician"),
	}
}

// ============================================================================
// Contact
// ============================================================================

func TestNewContact_TruncatesBirthdayToDate(t *testing.T) {
	bday := time.Date(1990, time.March, 14, 17, 30, 0, 0, time.FixedZone("X", 3600))
	c := NewContact(4, ContactFields{FirstName: "A", LastName: "B", Birthday: &bday})

	assert.Equal(t, int64(4), c.OwnerID)
	require.NotNil(t, c.Birthday)
	assert.Equal(t, time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC), *c.Birthday)
}

func TestContact_Replace_OverwritesEverything(t *testing.T) {
	c := sampleContact()
	c.Replace(ContactFields{FirstName: "Grace", LastName: "Hopper"})

	assert.Equal(t, "Grace", c.FirstName)
	assert.Equal(t, "Hopper", c.LastName)
	assert.Nil(t, c.Email)
	assert.Nil(t, c.Phone)
	assert.Nil(t, c.Birthday)
	assert.Nil(t, c.AdditionalInfo)
	assert.Equal(t, int64(1), c.ID, "identity is not editable")
	assert.Equal(t, int64(9), c.OwnerID, "owner is not editable")
}

// ============================================================================
// ContactPatch
// ============================================================================

func TestContactPatch_PhoneOnly_LeavesOtherFields(t *testing.T) {
	c := sampleContact()
	before := sampleContact()

	ContactPatch{Phone: Of("+15550000")}.Apply(&c)

	require.NotNil(t, c.Phone)
	assert.Equal(t, "+15550000", *c.Phone)
	assert.Equal(t, before.FirstName, c.FirstName)
	assert.Equal(t, before.LastName, c.LastName)
	assert.Equal(t, before.Email, c.Email)
	assert.Equal(t, before.Birthday, c.Birthday)
	assert.Equal(t, before.AdditionalInfo, c.AdditionalInfo)
}

func TestContactPatch_NullClearsOptionalFields(t *testing.T) {
	c := sampleContact()

	ContactPatch{
		Email:          Null[string](),
		Birthday:       Null[time.Time](),
		AdditionalInfo: Null[string](),
	}.Apply(&c)

	assert.Nil(t, c.Email)
	assert.Nil(t, c.Birthday)
	assert.Nil(t, c.AdditionalInfo)
	assert.NotNil(t, c.Phone, "absent field must be left alone")
}

func TestContactPatch_ReplacesNames(t *testing.T) {
	c := sampleContact()
	ContactPatch{FirstName: ptr("Augusta"), LastName: ptr("King")}.Apply(&c)

	assert.Equal(t, "Augusta", c.FirstName)
	assert.Equal(t, "King", c.LastName)
}

func TestContactPatch_IsEmpty(t *testing.T) {
	assert.True(t, ContactPatch{}.IsEmpty())
	assert.False(t, ContactPatch{Email: Null[string]()}.IsEmpty())
	assert.False(t, ContactPatch{FirstName: ptr("x")}.IsEmpty())
}

// ============================================================================
// User
// ============================================================================

func TestUser_Summary(t *testing.T) {
	u := User{ID: 3, Email: "a@b.co", PasswordHash: "h", IsVerified: true, AvatarURL: ptr("https://cdn/x")}
	s := u.Summary()

	assert.Equal(t, &UserSummary{ID: 3, Email: "a@b.co", IsVerified: true, AvatarURL: ptr("https://cdn/x")}, s)
}

func TestAvatarKey(t *testing.T) {
	assert.Equal(t, "contacts_avatars/user-42", AvatarKey(42))
}

func TestIsImageContentType(t *testing.T) {
	assert.True(t, IsImageContentType("image/png"))
	assert.True(t, IsImageContentType("IMAGE/JPEG"))
	assert.False(t, IsImageContentType("application/pdf"))
	assert.False(t, IsImageContentType(""))
}
