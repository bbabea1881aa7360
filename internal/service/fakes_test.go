package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"finflow-identity/internal/model"
)

// fakeUserRepo is an in-memory UserRepository keyed by user ID.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUserRepo(users ...model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]model.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeUserRepo) Create(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	r.users[userID] = user
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, userID string, firstName, lastName string, dob *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	user.FirstName = firstName
	user.LastName = lastName
	user.DOB = dob
	r.users[userID] = user
	return nil
}

func (r *fakeUserRepo) SetBiometric(_ context.Context, userID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	user.Biometric = enabled
	r.users[userID] = user
	return nil
}

func (r *fakeUserRepo) SetLastLogin(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	user.LastLogin = &at
	r.users[userID] = user
	return nil
}

// fakeRoleRepo tracks a flat set of role names.
type fakeRoleRepo struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func newFakeRoleRepo(names ...string) *fakeRoleRepo {
	repo := &fakeRoleRepo{names: map[string]struct{}{}}
	for _, name := range names {
		repo.names[name] = struct{}{}
	}
	return repo
}

func (r *fakeRoleRepo) Exists(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.names[name]
	return ok, nil
}

func (r *fakeRoleRepo) Create(_ context.Context, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names[role.Name] = struct{}{}
	return nil
}

// fakeBlacklist is an in-memory InvalidatedTokenRepository.
type fakeBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: map[string]time.Time{}}
}

func (b *fakeBlacklist) Revoke(_ context.Context, jti string, expiry time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.revoked[jti]; !ok {
		b.revoked[jti] = expiry
	}
	return nil
}

func (b *fakeBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.revoked[jti]
	return ok, nil
}

func (b *fakeBlacklist) DeleteExpired(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int64
	now := time.Now()
	for jti, expiry := range b.revoked {
		if expiry.Before(now) {
			delete(b.revoked, jti)
			removed++
		}
	}
	return removed, nil
}

func (b *fakeBlacklist) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.revoked)
}

// fakeMailer records sent messages.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *fakeMailer) Send(_ context.Context, to string, subject string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// fakeGoogleVerifier accepts a single known id token.
type fakeGoogleVerifier struct {
	token   string
	profile GoogleProfile
}

func (v *fakeGoogleVerifier) Verify(_ context.Context, idToken string) (GoogleProfile, error) {
	if idToken != v.token {
		return GoogleProfile{}, model.ErrInvalidToken
	}
	return v.profile, nil
}
