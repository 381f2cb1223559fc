package session

import "context"

// Store is the session persistence boundary: the single refresh-token slot
// on each user record. It is a thin accessor with no business logic; the
// Service is its sole caller and the only place invariants are enforced.
//
// Implementations must make Replace an atomic compare-and-swap so that two
// concurrent refreshes presenting the same stored value cannot both succeed.
type Store interface {
	// GetRefreshToken returns the currently stored refresh token for the
	// user, or "" when none is stored (logged out).
	GetRefreshToken(ctx context.Context, userID string) (string, error)

	// SetRefreshToken unconditionally overwrites the stored slot. An empty
	// token clears it. Returns ErrUnknownSubject if the user does not exist.
	SetRefreshToken(ctx context.Context, userID string, token string) error

	// ReplaceRefreshToken swaps old for new only if the stored slot still
	// byte-equals old. Returns (false, nil) when the slot held a different
	// value (including empty), which the Service reports as reuse.
	ReplaceRefreshToken(ctx context.Context, userID string, old, new string) (bool, error)
}
