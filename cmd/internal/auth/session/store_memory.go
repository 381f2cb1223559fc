package session

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded Store for tests and DB-less dev runs. The
// mutex gives Replace the same one-winner semantics the Postgres store gets
// from its conditional UPDATE.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]string
}

// NewMemoryStore constructs an empty in-memory session store. Unlike the
// Postgres store it has no user table to consult, so unknown subjects simply
// read as logged out.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

// GetRefreshToken returns the stored slot or "".
func (s *MemoryStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[userID], nil
}

// SetRefreshToken overwrites the slot; "" clears it.
func (s *MemoryStore) SetRefreshToken(ctx context.Context, userID string, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		delete(s.slots, userID)
		return nil
	}
	s.slots[userID] = token
	return nil
}

// ReplaceRefreshToken performs the compare-and-swap under the store mutex.
func (s *MemoryStore) ReplaceRefreshToken(ctx context.Context, userID string, old, new string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old == "" || s.slots[userID] != old {
		return false, nil
	}
	if new == "" {
		delete(s.slots, userID)
	} else {
		s.slots[userID] = new
	}
	return true, nil
}
