package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tube/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements video persistence over PostgreSQL. The pool is
// owned by the caller and must not be closed here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("videos: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const videoColumns = `
	id, owner_id, title, description, video_url, thumbnail_url,
	duration_seconds, views, published, created_at, updated_at`

func scanVideo(row pgx.Row) (Video, error) {
	var v Video
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
		&v.DurationSeconds, &v.Views, &v.Published, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

// Create inserts a new video row, unpublished.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Video, error) {
	if err := validateCreate(&in); err != nil {
		return Video{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Video{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tube.videos (
			id, owner_id, title, description, video_url, thumbnail_url,
			duration_seconds, views, published, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, 0, FALSE, $8, $8
		)
	`, id, in.OwnerID, in.Title, in.Description, in.VideoURL, in.ThumbnailURL,
		in.DurationSeconds, now)
	if err != nil {
		return Video{}, fmt.Errorf("videos: create: %w", err)
	}

	return Video{
		ID:              id,
		OwnerID:         in.OwnerID,
		Title:           in.Title,
		Description:     in.Description,
		VideoURL:        in.VideoURL,
		ThumbnailURL:    in.ThumbnailURL,
		DurationSeconds: in.DurationSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// GetByID loads a video by ULID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Video, error) {
	v, err := scanVideo(s.pool.QueryRow(ctx, `
		SELECT `+videoColumns+`
		FROM tube.videos
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	if err != nil {
		return Video{}, fmt.Errorf("videos: get: %w", err)
	}
	return v, nil
}

// Update applies the non-nil fields in one statement.
func (s *PostgresStore) Update(ctx context.Context, id string, in UpdateInput) (Video, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return Video{}, fmt.Errorf("videos: update: empty title: %w", ErrInvalidInput)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	v, err := scanVideo(s.pool.QueryRow(ctx, `
		UPDATE tube.videos
		SET title         = COALESCE($2, title),
		    description   = COALESCE($3, description),
		    thumbnail_url = COALESCE($4, thumbnail_url),
		    updated_at    = $5
		WHERE id = $1
		RETURNING `+videoColumns+`
	`, id, in.Title, in.Description, in.ThumbnailURL, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	if err != nil {
		return Video{}, fmt.Errorf("videos: update: %w", err)
	}
	return v, nil
}

// Delete removes a video row.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tube.videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("videos: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TogglePublish flips the publication flag in a single statement so two
// concurrent toggles never lose an update.
func (s *PostgresStore) TogglePublish(ctx context.Context, id string, now time.Time) (Video, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	v, err := scanVideo(s.pool.QueryRow(ctx, `
		UPDATE tube.videos
		SET published = NOT published, updated_at = $2
		WHERE id = $1
		RETURNING `+videoColumns+`
	`, id, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	if err != nil {
		return Video{}, fmt.Errorf("videos: toggle publish: %w", err)
	}
	return v, nil
}

// IncrementViews bumps the view counter.
func (s *PostgresStore) IncrementViews(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tube.videos SET views = views + 1 WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("videos: increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func validateCreate(in *CreateInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	in.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)

	if in.OwnerID == "" {
		return fmt.Errorf("videos: create: missing owner: %w", ErrInvalidInput)
	}
	if in.Title == "" || in.VideoURL == "" {
		return fmt.Errorf("videos: create: title and video_url are required: %w", ErrInvalidInput)
	}
	if in.DurationSeconds < 0 {
		return fmt.Errorf("videos: create: negative duration: %w", ErrInvalidInput)
	}
	return nil
}
