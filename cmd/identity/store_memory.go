package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded Store for tests and DB-less dev runs.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*memUser
	names map[string]string // username_norm -> id
	mails map[string]string // email_norm -> id
}

type memUser struct {
	user         User
	passwordHash string
}

// NewMemoryStore constructs an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*memUser),
		names: make(map[string]string),
		mails: make(map[string]string),
	}
}

// CreateUser creates a new user, enforcing the same normalized uniqueness
// rules as the Postgres schema.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if username == "" || email == "" || fullName == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username, email and full_name are required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unorm := NormalizeUsername(username)
	enorm := NormalizeEmail(email)
	if _, ok := s.names[unorm]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	if _, ok := s.mails[enorm]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	u := User{
		ID:        id,
		Username:  username,
		Email:     email,
		FullName:  fullName,
		AvatarURL: in.AvatarURL,
		CoverURL:  in.CoverURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[id] = &memUser{user: u, passwordHash: in.PasswordHash}
	s.names[unorm] = id
	s.mails[enorm] = id

	return u, nil
}

// GetByID loads a user by ULID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[id]
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return mu.user, nil
}

// GetByLogin resolves a username-or-email identifier.
func (s *MemoryStore) GetByLogin(ctx context.Context, login string) (UserAuth, error) {
	const op = "identity.GetByLogin"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	norm := NormalizeUsername(login)
	if norm == "" {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty login"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.names[norm]
	if !ok {
		id, ok = s.mails[norm]
	}
	if !ok {
		return UserAuth{}, OpError{Op: op, Kind: ErrNotFound}
	}
	mu := s.byID[id]
	return UserAuth{User: mu.user, PasswordHash: mu.passwordHash}, nil
}

// UpdatePassword replaces the stored credential digest.
func (s *MemoryStore) UpdatePassword(ctx context.Context, id string, passwordHash string, now time.Time) error {
	const op = "identity.UpdatePassword"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[id]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	mu.passwordHash = passwordHash
	mu.user.UpdatedAt = now
	return nil
}

// UpdateProfile applies the non-nil profile fields, enforcing normalized
// email uniqueness on an email change.
func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[id]
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email must not be empty"}
		}
		norm := NormalizeEmail(email)
		if owner, taken := s.mails[norm]; taken && owner != id {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		delete(s.mails, NormalizeEmail(mu.user.Email))
		s.mails[norm] = id
		mu.user.Email = email
	}
	if in.FullName != nil {
		mu.user.FullName = *in.FullName
	}
	if in.AvatarURL != nil {
		mu.user.AvatarURL = in.AvatarURL
	}
	if in.CoverURL != nil {
		mu.user.CoverURL = in.CoverURL
	}
	mu.user.UpdatedAt = now
	return mu.user, nil
}
