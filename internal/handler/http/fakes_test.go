package http

import (
	"context"
	"sync"
	"time"

	"github.com/utafrali/ContactsGo/internal/domain"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[int64]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, email, passwordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	now := time.Now().UTC()
	u := &domain.User{ID: r.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	r.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id int64) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) { u.IsVerified = true })
}

func (r *fakeUserRepo) SetPassword(_ context.Context, id int64, passwordHash string) error {
	_, err := r.mutate(id, func(u *domain.User) { u.PasswordHash = passwordHash })
	return err
}

func (r *fakeUserRepo) SetAvatar(_ context.Context, id int64, url string) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) { u.AvatarURL = &url })
}

func (r *fakeUserRepo) mutate(id int64, fn func(*domain.User)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

// fakeContactRepo is an in-memory ContactRepository enforcing per-owner
// uniqueness of email and phone.
type fakeContactRepo struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]domain.Contact
	creates int
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{rows: make(map[int64]domain.Contact)}
}

func (r *fakeContactRepo) Create(_ context.Context, c *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.clashes(c) {
		return domain.ErrConflictingContact
	}
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.rows[c.ID] = *c
	return nil
}

func (r *fakeContactRepo) GetByID(_ context.Context, ownerID, id int64) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrContactNotFound
	}
	return &c, nil
}

func (r *fakeContactRepo) List(_ context.Context, ownerID int64, offset, limit int) ([]domain.Contact, error) {
	owned := r.owned(ownerID, false)
	if offset >= len(owned) {
		return []domain.Contact{}, nil
	}
	end := min(offset+limit, len(owned))
	return owned[offset:end], nil
}

func (r *fakeContactRepo) ListWithBirthday(_ context.Context, ownerID int64) ([]domain.Contact, error) {
	return r.owned(ownerID, true), nil
}

func (r *fakeContactRepo) Update(_ context.Context, c *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.rows[c.ID]
	if !ok || old.OwnerID != c.OwnerID {
		return domain.ErrContactNotFound
	}
	if r.clashes(c) {
		return domain.ErrConflictingContact
	}
	c.UpdatedAt = time.Now().UTC()
	r.rows[c.ID] = *c
	return nil
}

func (r *fakeContactRepo) Delete(_ context.Context, ownerID, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.OwnerID != ownerID {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *fakeContactRepo) createCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func (r *fakeContactRepo) owned(ownerID int64, withBirthday bool) []domain.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Contact{}
	for id := int64(1); id <= r.nextID; id++ {
		c, ok := r.rows[id]
		if !ok || c.OwnerID != ownerID || (withBirthday && c.Birthday == nil) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *fakeContactRepo) clashes(c *domain.Contact) bool {
	for _, other := range r.rows {
		if other.ID == c.ID || other.OwnerID != c.OwnerID {
			continue
		}
		if sameValue(other.Email, c.Email) || sameValue(other.Phone, c.Phone) {
			return true
		}
	}
	return false
}

func sameValue(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// recordingNotifier keeps the last token mailed to each address.
type recordingNotifier struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{verify: make(map[string]string), reset: make(map[string]string)}
}

func (n *recordingNotifier) SendVerification(_ context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify[to] = token
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[to] = token
	return nil
}

func (n *recordingNotifier) verifyToken(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verify[to]
}

func (n *recordingNotifier) resetToken(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset[to]
}
