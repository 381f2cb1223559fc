package session

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for both an unknown login
	// identifier and a wrong password. Callers must not be able to tell the
	// two apart (identity enumeration resistance).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenMalformed is returned when a token cannot be parsed or its
	// signature does not verify. Claims of a malformed token are never
	// inspected.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenExpired is returned for a correctly signed token past its
	// expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReuse is returned when a correctly signed, unexpired refresh
	// token no longer matches the stored slot: it was superseded by a later
	// refresh or login, or cleared by logout.
	ErrTokenReuse = errors.New("refresh token reused or revoked")

	// ErrUnknownSubject is returned when a token's subject does not resolve
	// to an existing user. Surfaced to HTTP callers as a generic 401.
	ErrUnknownSubject = errors.New("unknown token subject")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
