package videos

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	authapi "tube/cmd/internal/auth/api"
	"tube/cmd/internal/httpjson"
)

// Middleware wraps an http.Handler, the shape of the auth gate.
type Middleware func(http.Handler) http.Handler

// Handler wires video CRUD endpoints to the store, behind the auth gate.
type Handler struct {
	log   *slog.Logger
	store Store

	requireAuth  Middleware
	optionalAuth Middleware

	maxBodyBytes int64
}

// NewHandler constructs a video Handler. requireAuth guards every mutation;
// optionalAuth lets reads resolve the viewer for owner visibility.
func NewHandler(log *slog.Logger, store Store, requireAuth, optionalAuth Middleware, maxBodyBytes int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	passthrough := func(next http.Handler) http.Handler { return next }
	if requireAuth == nil {
		requireAuth = passthrough
	}
	if optionalAuth == nil {
		optionalAuth = passthrough
	}
	return &Handler{
		log:          log,
		store:        store,
		requireAuth:  requireAuth,
		optionalAuth: optionalAuth,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register wires video routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.Handle("/videos", h.requireAuth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("/videos/", h.optionalAuth(http.HandlerFunc(h.handleItem)))
}

type createVideoRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	VideoURL        string  `json:"video_url"`
	ThumbnailURL    string  `json:"thumbnail_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type updateVideoRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

type videoResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"video_url"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	DurationSeconds float64   `json:"duration_seconds"`
	Views           int64     `json:"views"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toVideoResponse(v Video) videoResponse {
	return videoResponse{
		ID:              v.ID,
		OwnerID:         v.OwnerID,
		Title:           v.Title,
		Description:     v.Description,
		VideoURL:        v.VideoURL,
		ThumbnailURL:    v.ThumbnailURL,
		DurationSeconds: v.DurationSeconds,
		Views:           v.Views,
		Published:       v.Published,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := authapi.UserFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return
	}

	var req createVideoRequest
	if err := httpjson.Decode(w, r, h.maxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	v, err := h.store.Create(r.Context(), CreateInput{
		OwnerID:         u.ID,
		Title:           req.Title,
		Description:     req.Description,
		VideoURL:        req.VideoURL,
		ThumbnailURL:    req.ThumbnailURL,
		DurationSeconds: req.DurationSeconds,
		Now:             time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "title and video_url are required")
			return
		}
		h.log.Error("videos.create.fail", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("videos.create.ok", "video_id", v.ID, "owner_id", u.ID)
	httpjson.Write(w, http.StatusCreated, toVideoResponse(v))
}

// handleItem dispatches /videos/{id} and /videos/{id}/publish.
func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/videos/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || (action != "" && action != "publish") {
		httpjson.Error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}

	if action == "publish" {
		h.handleTogglePublish(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, id)
	case http.MethodPatch:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	v, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	viewer, _ := authapi.UserFromContext(r.Context())
	if !v.Published && viewer.ID != v.OwnerID {
		// Hidden videos do not exist for anyone but their owner.
		httpjson.Error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}

	if err := h.store.IncrementViews(r.Context(), id); err == nil {
		v.Views++
	}

	httpjson.Write(w, http.StatusOK, toVideoResponse(v))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	v, ok := h.requireOwner(w, r, id)
	if !ok {
		return
	}

	var req updateVideoRequest
	if err := httpjson.Decode(w, r, h.maxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	updated, err := h.store.Update(r.Context(), v.ID, UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid input")
			return
		}
		h.writeStoreError(w, err)
		return
	}

	httpjson.Write(w, http.StatusOK, toVideoResponse(updated))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	v, ok := h.requireOwner(w, r, id)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), v.ID); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.log.Info("videos.delete.ok", "video_id", v.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTogglePublish(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	v, ok := h.requireOwner(w, r, id)
	if !ok {
		return
	}

	updated, err := h.store.TogglePublish(r.Context(), v.ID, time.Now().UTC())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httpjson.Write(w, http.StatusOK, toVideoResponse(updated))
}

// requireOwner loads the video and enforces that the authenticated viewer
// owns it. Non-owners get 403 only when the video is published; otherwise
// 404, the same as a missing id.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request, id string) (Video, bool) {
	viewer, authed := authapi.UserFromContext(r.Context())
	if !authed {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return Video{}, false
	}

	v, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return Video{}, false
	}
	if v.OwnerID != viewer.ID {
		if v.Published {
			httpjson.Error(w, http.StatusForbidden, "forbidden", "not the owner")
		} else {
			httpjson.Error(w, http.StatusNotFound, "not_found", "video not found")
		}
		return Video{}, false
	}
	return v, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpjson.Error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}
	h.log.Error("videos.store.fail", "err", err)
	httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
}

