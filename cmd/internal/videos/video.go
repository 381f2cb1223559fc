// Package videos holds video metadata CRUD behind the auth gate. Media
// bytes live elsewhere; this package only tracks URLs and ownership.
package videos

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports a missing or invisible video.
	ErrNotFound = errors.New("videos: not found")

	// ErrInvalidInput reports a request that fails field validation.
	ErrInvalidInput = errors.New("videos: invalid input")
)

// Video is a stored video record. OwnerID refers to an identity user;
// unpublished videos are visible to their owner only.
type Video struct {
	ID      string
	OwnerID string

	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string

	DurationSeconds float64
	Views           int64
	Published       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput describes a new video. Title and VideoURL are required.
type CreateInput struct {
	OwnerID         string
	Title           string
	Description     string
	VideoURL        string
	ThumbnailURL    string
	DurationSeconds float64
	Now             time.Time
}

// UpdateInput carries the mutable metadata fields. Nil means "leave
// unchanged".
type UpdateInput struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	Now          time.Time
}

// Store is the video persistence boundary.
type Store interface {
	// Create inserts a new video, unpublished by default.
	Create(ctx context.Context, in CreateInput) (Video, error)

	// GetByID loads a video by its ULID regardless of publication state;
	// visibility is the caller's concern.
	GetByID(ctx context.Context, id string) (Video, error)

	// Update applies the non-nil metadata fields and returns the updated
	// video.
	Update(ctx context.Context, id string, in UpdateInput) (Video, error)

	// Delete removes a video. Missing ids map to ErrNotFound.
	Delete(ctx context.Context, id string) error

	// TogglePublish flips the publication flag atomically and returns the
	// updated video.
	TogglePublish(ctx context.Context, id string, now time.Time) (Video, error)

	// IncrementViews bumps the view counter. Best effort on the read path;
	// a missing id maps to ErrNotFound.
	IncrementViews(ctx context.Context, id string) error
}
