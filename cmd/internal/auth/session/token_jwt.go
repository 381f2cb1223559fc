package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tube/cmd/identity"
	"tube/cmd/identity/ids"
)

// AccessClaims is the identity envelope carried by an access token and
// propagated to protected handlers.
type AccessClaims struct {
	UserID   string
	Username string
	Email    string
	FullName string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// accessTokenClaims is the wire shape of an access token payload.
type accessTokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// refreshTokenClaims carries only the subject; refresh tokens grant nothing
// by themselves and embed no display data.
type refreshTokenClaims struct {
	jwt.RegisteredClaims
}

// Codec signs and verifies tube's two token classes. Stateless and safe for
// concurrent use; the class secrets are fixed at construction.
type Codec struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration

	accessSecret  []byte
	refreshSecret []byte
}

// NewCodec builds a Codec from validated configuration.
func NewCodec(cfg Config) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Codec{
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
	}, nil
}

// IssueAccess signs a new access token for u expiring at now + access TTL.
func (c *Codec) IssueAccess(u identity.User, now time.Time) (token string, exp time.Time, err error) {
	exp = now.Add(c.accessTTL)

	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh signs a new refresh token for the subject expiring at
// now + refresh TTL. The jti makes every issued token unique even within
// the one-second resolution of iat, so rotation always produces a value
// distinct from the one it replaces.
func (c *Codec) IssueRefresh(userID string, now time.Time) (token string, exp time.Time, err error) {
	exp = now.Add(c.refreshTTL)

	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}

	claims := refreshTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess checks an access token: signature first, then expiry, then
// claims. No embedded field is trusted before the signature verifies.
func (c *Codec) VerifyAccess(token string, now time.Time) (AccessClaims, error) {
	claims := &accessTokenClaims{}
	if err := c.verify(token, claims, c.accessSecret, now); err != nil {
		return AccessClaims{}, err
	}
	if claims.Subject == "" {
		return AccessClaims{}, ErrTokenMalformed
	}
	return AccessClaims{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		FullName:  claims.FullName,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyRefresh checks a refresh token and returns its subject. The result
// only proves possession of a well-formed unexpired token; the caller must
// still compare it against the stored slot.
func (c *Codec) VerifyRefresh(token string, now time.Time) (subject string, err error) {
	claims := &refreshTokenClaims{}
	if err := c.verify(token, claims, c.refreshSecret, now); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}

type registeredClaims interface {
	jwt.Claims
	expiresAt() time.Time
}

func (c accessTokenClaims) expiresAt() time.Time  { return c.ExpiresAt.Time }
func (c refreshTokenClaims) expiresAt() time.Time { return c.ExpiresAt.Time }

func (c *Codec) verify(token string, claims registeredClaims, secret []byte, now time.Time) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		// Signature and structure failures take priority over expiry: the
		// library skips claim validation for tokens that do not verify, so
		// an "expired" result implies an intact signature.
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrTokenExpired
		default:
			return ErrTokenMalformed
		}
	}
	if !parsed.Valid {
		return ErrTokenMalformed
	}
	// Expiry is inclusive: a token is dead at its exact expiry instant.
	if !now.Before(claims.expiresAt()) {
		return ErrTokenExpired
	}
	return nil
}
