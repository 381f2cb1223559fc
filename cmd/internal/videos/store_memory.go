package videos

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tube/cmd/identity/ids"
)

// MemoryStore is a mutex-guarded Store for tests and DB-less dev runs.
type MemoryStore struct {
	mu   sync.Mutex
	byID map[string]Video
}

// NewMemoryStore constructs an empty in-memory video store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Video)}
}

// Create inserts a new video, unpublished.
func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}
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

	v := Video{
		ID:              id,
		OwnerID:         in.OwnerID,
		Title:           in.Title,
		Description:     in.Description,
		VideoURL:        in.VideoURL,
		ThumbnailURL:    in.ThumbnailURL,
		DurationSeconds: in.DurationSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = v
	return v, nil
}

// GetByID loads a video by ULID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	return v, nil
}

// Update applies the non-nil fields.
func (s *MemoryStore) Update(ctx context.Context, id string, in UpdateInput) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return Video{}, fmt.Errorf("videos: update: empty title: %w", ErrInvalidInput)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	if in.Title != nil {
		v.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		v.Description = strings.TrimSpace(*in.Description)
	}
	if in.ThumbnailURL != nil {
		v.ThumbnailURL = strings.TrimSpace(*in.ThumbnailURL)
	}
	v.UpdatedAt = now
	s.byID[id] = v
	return v, nil
}

// Delete removes a video.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// TogglePublish flips the publication flag.
func (s *MemoryStore) TogglePublish(ctx context.Context, id string, now time.Time) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	v.Published = !v.Published
	v.UpdatedAt = now
	s.byID[id] = v
	return v, nil
}

// IncrementViews bumps the view counter.
func (s *MemoryStore) IncrementViews(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	v.Views++
	s.byID[id] = v
	return nil
}
