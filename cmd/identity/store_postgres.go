package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements user-record persistence over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Errors are mapped to identity sentinel kinds where appropriate.
//   - The users.refresh_token column is deliberately untouched here; the
//     session package's store adapter is its sole writer.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default
// "tube"). The name must be a legal unquoted PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore over the given pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	st := &PostgresStore{pool: pool, schema: "tube"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// users returns the quoted schema-qualified users table identifier.
func (s *PostgresStore) users() string {
	return pgx.Identifier{s.schema, "users"}.Sanitize()
}

// CreateUser inserts a new user row, mapping unique violations to ConflictError.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.users()+` (
		     id, username, username_norm, email, email_norm,
		     full_name, avatar_url, cover_url,
		     password_hash, refresh_token, created_at, updated_at
		 ) VALUES (
		     $1, $2, $3, $4, $5,
		     $6, $7, $8,
		     $9, NULL, $10, $10
		 )`,
		id, username, NormalizeUsername(username), email, NormalizeEmail(email),
		fullName, in.AvatarURL, in.CoverURL, in.PasswordHash, now)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return User{
		ID:        id,
		Username:  username,
		Email:     email,
		FullName:  fullName,
		AvatarURL: in.AvatarURL,
		CoverURL:  in.CoverURL,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByID loads a user by ULID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, full_name, avatar_url, cover_url, created_at, updated_at
		 FROM `+s.users()+`
		 WHERE id = $1`,
		id).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.AvatarURL, &u.CoverURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetByLogin resolves a username-or-email identifier, returning the digest
// for the credential verifier.
func (s *PostgresStore) GetByLogin(ctx context.Context, login string) (UserAuth, error) {
	const op = "identity.GetByLogin"

	norm := NormalizeUsername(login)
	if norm == "" {
		return UserAuth{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty login"}
	}

	var ua UserAuth
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, full_name, avatar_url, cover_url, password_hash, created_at, updated_at
		 FROM `+s.users()+`
		 WHERE username_norm = $1 OR email_norm = $1`,
		norm).Scan(
		&ua.User.ID, &ua.User.Username, &ua.User.Email, &ua.User.FullName,
		&ua.User.AvatarURL, &ua.User.CoverURL, &ua.PasswordHash,
		&ua.User.CreatedAt, &ua.User.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return UserAuth{}, err
	}
	return ua, nil
}

// UpdatePassword replaces the stored credential digest.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id string, passwordHash string, now time.Time) error {
	const op = "identity.UpdatePassword"

	if strings.TrimSpace(passwordHash) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.users()+`
		 SET password_hash = $2, updated_at = $3
		 WHERE id = $1`,
		id, passwordHash, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

// UpdateProfile applies the non-nil profile fields. An email change updates
// the normalized lookup column too; collisions map to ConflictError.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var emailNorm *string
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email must not be empty"}
		}
		norm := NormalizeEmail(email)
		in.Email = &email
		emailNorm = &norm
	}

	var u User
	err := s.pool.QueryRow(ctx,
		`UPDATE `+s.users()+`
		 SET full_name  = COALESCE($2, full_name),
		     email      = COALESCE($3, email),
		     email_norm = COALESCE($4, email_norm),
		     avatar_url = COALESCE($5, avatar_url),
		     cover_url  = COALESCE($6, cover_url),
		     updated_at = $7
		 WHERE id = $1
		 RETURNING id, username, email, full_name, avatar_url, cover_url, created_at, updated_at`,
		id, in.FullName, in.Email, emailNorm, in.AvatarURL, in.CoverURL, now).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.AvatarURL, &u.CoverURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_users_username_norm":
		return "username", true
	case "uq_users_email_norm":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "username"):
			return "username", true
		case strings.Contains(c, "email"):
			return "email", true
		}
	}
	return "", true
}
