package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the refresh_token column of
// tube.users. There is no separate session table: the slot on the user row
// is the whole session state.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetRefreshToken loads the stored slot; NULL reads as "".
func (s *PostgresStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(refresh_token, '')
		FROM tube.users
		WHERE id = $1
	`, userID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownSubject
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// SetRefreshToken overwrites the slot; "" stores NULL.
func (s *PostgresStore) SetRefreshToken(ctx context.Context, userID string, token string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tube.users
		SET refresh_token = NULLIF($2, '')
		WHERE id = $1
	`, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownSubject
	}
	return nil
}

// ReplaceRefreshToken is the conditional overwrite that serializes refresh
// rotation: the UPDATE matches only while the slot still holds old, so of
// two concurrent calls presenting the same old value exactly one row-hit
// wins and the other observes a zero row count.
func (s *PostgresStore) ReplaceRefreshToken(ctx context.Context, userID string, old, new string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tube.users
		SET refresh_token = NULLIF($3, '')
		WHERE id = $1 AND refresh_token = $2
	`, userID, old, new)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
