package identity

import (
	"context"
	"time"

	"tube/cmd/identity/ids"
)

// User is tube's canonical security principal. It never carries the
// credential digest; callers that need it go through GetByLogin.
type User struct {
	ID       string
	Username string
	Email    string
	FullName string

	AvatarURL *string
	CoverURL  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth pairs a user with its stored credential digest. Returned only by
// login-path lookups; the digest must never reach a response body or a log.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration request. Username, Email,
// FullName and PasswordHash are required; the caller hashes the secret
// before it gets here.
type CreateUserInput struct {
	Username     string
	Email        string
	FullName     string
	AvatarURL    *string
	CoverURL     *string
	PasswordHash string
	Now          time.Time
}

// UpdateProfileInput carries the mutable profile fields. Nil means "leave
// unchanged". An email change is checked against the same normalized
// uniqueness rule as registration and maps to ConflictError on collision.
type UpdateProfileInput struct {
	FullName  *string
	Email     *string
	AvatarURL *string
	CoverURL  *string
	Now       time.Time
}

// Store is the user-record persistence boundary.
type Store interface {
	// CreateUser creates a new user. Username and email are unique under
	// case-insensitive normalization; violations map to ConflictError.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetByID loads a user by its ULID.
	GetByID(ctx context.Context, id string) (User, error)

	// GetByLogin resolves a username-or-email login identifier and returns
	// the user together with its credential digest.
	GetByLogin(ctx context.Context, login string) (UserAuth, error)

	// UpdatePassword replaces the stored credential digest.
	UpdatePassword(ctx context.Context, id string, passwordHash string, now time.Time) error

	// UpdateProfile applies the non-nil profile fields and returns the
	// updated user.
	UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (User, error)
}

// NewULID returns a new ULID (26-char string).
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
