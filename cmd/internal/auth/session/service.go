package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tube/cmd/identity"
	"tube/cmd/security/password"
)

// UserDirectory is the slice of the identity store the session core needs:
// login resolution, subject resolution, and credential replacement.
type UserDirectory interface {
	GetByLogin(ctx context.Context, login string) (identity.UserAuth, error)
	GetByID(ctx context.Context, id string) (identity.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string, now time.Time) error
}

// Issued is the result of login or refresh: a fresh access/refresh pair.
// Callers receive either the whole pair or an error, never a partial one.
type Issued struct {
	AccessToken string
	AccessExp   time.Time

	RefreshToken string
	RefreshExp   time.Time
}

// Service orchestrates the session state machine: login, refresh rotation
// with reuse detection, logout, and access-token authentication.
//
// Per user the state is encoded entirely by the stored refresh-token slot:
// empty means logged out, otherwise exactly the one live refresh token.
type Service struct {
	cfg   Config
	codec *Codec
	store Store
	users UserDirectory

	pw password.Config

	// dummyHash keeps login latency flat when the login identifier does not
	// resolve, so response timing does not reveal which accounts exist.
	dummyHash string
}

// NewService constructs a Service with the provided configuration, stores,
// and credential verifier config.
func NewService(cfg Config, store Store, users UserDirectory, pw password.Config) (*Service, error) {
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil || users == nil {
		return nil, fmt.Errorf("session: nil store or user directory")
	}

	s := &Service{
		cfg:   cfg,
		codec: codec,
		store: store,
		users: users,
		pw:    pw,
	}

	if h, err := pw.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = h
	}

	return s, nil
}

// Codec exposes the token codec for callers that only verify (the gate).
func (s *Service) Codec() *Codec { return s.codec }

// Login verifies the secret against the stored digest and, on success,
// issues a fresh token pair and stores the new refresh token. A previous
// session's refresh token is silently superseded; access tokens it already
// issued stay valid until their own expiry.
//
// Unknown identifier and wrong password are deliberately indistinguishable:
// both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, now time.Time, login, secret string) (identity.User, Issued, error) {
	login = strings.TrimSpace(login)
	if login == "" || secret == "" {
		return identity.User{}, Issued{}, ErrInvalidCredentials
	}

	ua, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			if s.dummyHash != "" {
				_, _ = s.pw.Verify(s.dummyHash, secret)
			}
			return identity.User{}, Issued{}, ErrInvalidCredentials
		}
		return identity.User{}, Issued{}, fmt.Errorf("session: login lookup: %w", err)
	}

	ok, err := s.pw.Verify(ua.PasswordHash, secret)
	if err != nil {
		return identity.User{}, Issued{}, fmt.Errorf("session: verify credential: %w", err)
	}
	if !ok {
		return identity.User{}, Issued{}, ErrInvalidCredentials
	}

	issued, err := s.issuePair(ua.User, now)
	if err != nil {
		return identity.User{}, Issued{}, err
	}

	if err := s.store.SetRefreshToken(ctx, ua.User.ID, issued.RefreshToken); err != nil {
		return identity.User{}, Issued{}, fmt.Errorf("session: store refresh token: %w", err)
	}

	return ua.User, issued, nil
}

// Refresh rotates a presented refresh token.
//
// The token must carry a valid signature, be unexpired, resolve to an
// existing user, and byte-equal the stored slot. The slot comparison and
// overwrite are one atomic conditional replace: of two concurrent refreshes
// presenting the same stored value at most one succeeds, the loser gets
// ErrTokenReuse. A reused token (superseded by rotation or cleared by
// logout) fails the same way, whatever its own expiry says.
func (s *Service) Refresh(ctx context.Context, now time.Time, presented string) (Issued, error) {
	presented = strings.TrimSpace(presented)
	// Sanity bound against pathological inputs.
	if presented == "" || len(presented) > 4096 {
		return Issued{}, ErrTokenMalformed
	}

	subject, err := s.codec.VerifyRefresh(presented, now)
	if err != nil {
		return Issued{}, err
	}

	u, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if identity.IsNotFound(err) {
			return Issued{}, ErrUnknownSubject
		}
		return Issued{}, fmt.Errorf("session: resolve subject: %w", err)
	}

	issued, err := s.issuePair(u, now)
	if err != nil {
		return Issued{}, err
	}

	swapped, err := s.store.ReplaceRefreshToken(ctx, u.ID, presented, issued.RefreshToken)
	if err != nil {
		return Issued{}, fmt.Errorf("session: rotate refresh token: %w", err)
	}
	if !swapped {
		return Issued{}, ErrTokenReuse
	}

	return issued, nil
}

// Logout clears the stored refresh token, making any previously issued
// refresh token for the user unusable even if unexpired. Idempotent: logging
// out while logged out is a no-op.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.store.SetRefreshToken(ctx, userID, ""); err != nil {
		// A vanished subject is already logged out as far as the caller is
		// concerned.
		if errors.Is(err, ErrUnknownSubject) {
			return nil
		}
		return fmt.Errorf("session: clear refresh token: %w", err)
	}
	return nil
}

// Authenticate verifies an access token and resolves its subject to a live
// user record. This is the whole check: logout does not revoke outstanding
// access tokens, they ride out their short TTL.
func (s *Service) Authenticate(ctx context.Context, token string, now time.Time) (identity.User, error) {
	claims, err := s.codec.VerifyAccess(token, now)
	if err != nil {
		return identity.User{}, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, ErrUnknownSubject
		}
		return identity.User{}, fmt.Errorf("session: resolve subject: %w", err)
	}
	return u, nil
}

// ChangePassword verifies the old secret and replaces the stored digest.
// Sessions are left untouched; the caller decides whether to force a logout.
func (s *Service) ChangePassword(ctx context.Context, now time.Time, userID, oldSecret, newSecret string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) {
			return ErrUnknownSubject
		}
		return fmt.Errorf("session: resolve subject: %w", err)
	}

	ua, err := s.users.GetByLogin(ctx, u.Username)
	if err != nil {
		return fmt.Errorf("session: load credential: %w", err)
	}

	ok, err := s.pw.Verify(ua.PasswordHash, oldSecret)
	if err != nil {
		return fmt.Errorf("session: verify credential: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.pw.Hash(newSecret)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, now); err != nil {
		return fmt.Errorf("session: update credential: %w", err)
	}
	return nil
}

func (s *Service) issuePair(u identity.User, now time.Time) (Issued, error) {
	access, accessExp, err := s.codec.IssueAccess(u, now)
	if err != nil {
		return Issued{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(u.ID, now)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}
