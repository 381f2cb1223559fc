package videos_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tube/cmd/identity"
	authapi "tube/cmd/internal/auth/api"
	"tube/cmd/internal/auth/session"
	"tube/cmd/internal/videos"
	"tube/cmd/security/password"

	"github.com/prometheus/client_golang/prometheus"
)

type fixture struct {
	ts *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pwCfg := password.Config{
		Params: password.Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{MinLength: 8, MaxLength: 256},
	}
	sessCfg := session.DefaultConfig()
	sessCfg.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	sessCfg.RefreshSecret = []byte("test-refresh-secret-0123456789abcde")

	users := identity.NewMemoryStore()
	svc, err := session.NewService(sessCfg, session.NewMemoryStore(), users, pwCfg)
	if err != nil {
		t.Fatalf("session.NewService: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := authapi.NewHandler(log, authapi.Config{
		MaxBodyBytes:      1 << 20,
		AccessCookieName:  "accessToken",
		RefreshCookieName: "refreshToken",
		CookiePath:        "/",
	}, users, svc, pwCfg, authapi.NewMetrics(prometheus.NewRegistry()))

	vh := videos.NewHandler(log, videos.NewMemoryStore(), auth.RequireAuth, auth.OptionalAuth, 1<<20)

	mux := http.NewServeMux()
	auth.Register(mux)
	vh.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &fixture{ts: ts}
}

// signUp registers and logs a user in, returning a bearer access token.
func (f *fixture) signUp(t *testing.T, username string) string {
	t.Helper()

	status, body := f.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"username":  username,
		"email":     username + "@example.com",
		"full_name": "Test " + username,
		"password":  "s3cret-enough",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: %d body=%s", username, status, body)
	}

	status, body = f.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"username": username,
		"password": "s3cret-enough",
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: %d body=%s", username, status, body)
	}

	var resp struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Session.AccessToken
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer func() { _ = res.Body.Close() }()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return res.StatusCode, raw
}

type videoJSON struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	Views     int64  `json:"views"`
	Published bool   `json:"published"`
}

func (f *fixture) createVideo(t *testing.T, token, title string) videoJSON {
	t.Helper()

	status, body := f.do(t, http.MethodPost, "/videos", token, map[string]any{
		"title":     title,
		"video_url": "https://cdn.example/" + title + ".mp4",
	})
	if status != http.StatusCreated {
		t.Fatalf("create video: %d body=%s", status, body)
	}
	var v videoJSON
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode video: %v", err)
	}
	return v
}

func TestCreateRequiresAuth(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodPost, "/videos", "", map[string]any{
		"title":     "anon",
		"video_url": "https://cdn.example/anon.mp4",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous create: expected 401, got %d", status)
	}
}

func TestUnpublishedVisibleToOwnerOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.signUp(t, "owner")
	other := f.signUp(t, "other")
	v := f.createVideo(t, owner, "draft")

	if status, _ := f.do(t, http.MethodGet, "/videos/"+v.ID, owner, nil); status != http.StatusOK {
		t.Fatalf("owner read: expected 200, got %d", status)
	}
	if status, _ := f.do(t, http.MethodGet, "/videos/"+v.ID, other, nil); status != http.StatusNotFound {
		t.Fatalf("stranger read of draft: expected 404, got %d", status)
	}
	if status, _ := f.do(t, http.MethodGet, "/videos/"+v.ID, "", nil); status != http.StatusNotFound {
		t.Fatalf("anonymous read of draft: expected 404, got %d", status)
	}
}

func TestPublishToggleAndPublicRead(t *testing.T) {
	f := newFixture(t)
	owner := f.signUp(t, "owner")
	v := f.createVideo(t, owner, "clip")

	status, body := f.do(t, http.MethodPost, "/videos/"+v.ID+"/publish", owner, nil)
	if status != http.StatusOK {
		t.Fatalf("publish: %d body=%s", status, body)
	}
	var pub videoJSON
	if err := json.Unmarshal(body, &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !pub.Published {
		t.Fatalf("expected published after toggle")
	}

	status, body = f.do(t, http.MethodGet, "/videos/"+v.ID, "", nil)
	if status != http.StatusOK {
		t.Fatalf("anonymous read of published: %d", status)
	}
	var got videoJSON
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("expected view counted, got %d", got.Views)
	}

	// Toggle back hides it again.
	if status, _ := f.do(t, http.MethodPost, "/videos/"+v.ID+"/publish", owner, nil); status != http.StatusOK {
		t.Fatalf("unpublish: %d", status)
	}
	if status, _ := f.do(t, http.MethodGet, "/videos/"+v.ID, "", nil); status != http.StatusNotFound {
		t.Fatalf("anonymous read after unpublish: expected 404, got %d", status)
	}
}

func TestMutationsAreOwnerOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.signUp(t, "owner")
	other := f.signUp(t, "other")
	v := f.createVideo(t, owner, "mine")

	// Published so the stranger sees a 403, not a hiding 404.
	if status, _ := f.do(t, http.MethodPost, "/videos/"+v.ID+"/publish", owner, nil); status != http.StatusOK {
		t.Fatalf("publish failed")
	}

	if status, _ := f.do(t, http.MethodPatch, "/videos/"+v.ID, other, map[string]any{"title": "stolen"}); status != http.StatusForbidden {
		t.Fatalf("stranger patch: expected 403, got %d", status)
	}
	if status, _ := f.do(t, http.MethodDelete, "/videos/"+v.ID, other, nil); status != http.StatusForbidden {
		t.Fatalf("stranger delete: expected 403, got %d", status)
	}
	if status, _ := f.do(t, http.MethodPost, "/videos/"+v.ID+"/publish", other, nil); status != http.StatusForbidden {
		t.Fatalf("stranger publish: expected 403, got %d", status)
	}

	status, body := f.do(t, http.MethodPatch, "/videos/"+v.ID, owner, map[string]any{"title": "renamed"})
	if status != http.StatusOK {
		t.Fatalf("owner patch: %d body=%s", status, body)
	}
	var got videoJSON
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "renamed" {
		t.Fatalf("title=%q", got.Title)
	}

	if status, _ := f.do(t, http.MethodDelete, "/videos/"+v.ID, owner, nil); status != http.StatusNoContent {
		t.Fatalf("owner delete: expected 204, got %d", status)
	}
	if status, _ := f.do(t, http.MethodGet, "/videos/"+v.ID, owner, nil); status != http.StatusNotFound {
		t.Fatalf("read after delete: expected 404, got %d", status)
	}
}

func TestUnknownItemPaths(t *testing.T) {
	f := newFixture(t)
	owner := f.signUp(t, "owner")
	v := f.createVideo(t, owner, "clip")

	if status, _ := f.do(t, http.MethodGet, "/videos/"+v.ID+"/thumbnail", owner, nil); status != http.StatusNotFound {
		t.Fatalf("unknown action: expected 404")
	}
	if status, _ := f.do(t, http.MethodGet, "/videos/01MISSINGMISSINGMISSINGMISS", owner, nil); status != http.StatusNotFound {
		t.Fatalf("missing id: expected 404")
	}
}
