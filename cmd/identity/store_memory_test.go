package identity

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	u, err := st.CreateUser(ctx, CreateUserInput{
		Username:     "Ava",
		Email:        "Ava@Example.com",
		FullName:     "Ava Stone",
		PasswordHash: "digest",
		Now:          now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if len(u.ID) != 26 {
		t.Fatalf("expected ULID id, got %q", u.ID)
	}

	got, err := st.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Username != "Ava" || got.Email != "Ava@Example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}

	// Lookup is case-insensitive for both username and email.
	for _, login := range []string{"ava", "AVA", "ava@example.com"} {
		ua, err := st.GetByLogin(ctx, login)
		if err != nil {
			t.Fatalf("GetByLogin(%q): %v", login, err)
		}
		if ua.User.ID != u.ID || ua.PasswordHash != "digest" {
			t.Fatalf("GetByLogin(%q) resolved wrong record", login)
		}
	}
}

func TestMemoryStore_Conflicts(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	ctx := context.Background()

	seed := CreateUserInput{
		Username:     "ava",
		Email:        "ava@example.com",
		FullName:     "Ava Stone",
		PasswordHash: "digest",
	}
	if _, err := st.CreateUser(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dup := seed
	dup.Email = "other@example.com"
	if _, err := st.CreateUser(ctx, dup); !IsConflict(err) {
		t.Fatalf("expected username conflict, got %v", err)
	}

	dup = seed
	dup.Username = "other"
	if _, err := st.CreateUser(ctx, dup); !IsConflict(err) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestMemoryStore_NotFoundKinds(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.GetByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if _, err := st.GetByLogin(ctx, "ghost"); !IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if err := st.UpdatePassword(ctx, "missing", "digest", time.Now()); !IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestMemoryStore_UpdateProfilePartial(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	ctx := context.Background()

	u, err := st.CreateUser(ctx, CreateUserInput{
		Username:     "ava",
		Email:        "ava@example.com",
		FullName:     "Ava Stone",
		PasswordHash: "digest",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	name := "Ava R. Stone"
	avatar := "https://cdn.example.com/a.png"
	got, err := st.UpdateProfile(ctx, u.ID, UpdateProfileInput{FullName: &name, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.FullName != name || got.AvatarURL == nil || *got.AvatarURL != avatar {
		t.Fatalf("profile not applied: %+v", got)
	}
	if got.Email != u.Email {
		t.Fatalf("email must be unchanged")
	}
}

func TestMemoryStore_UpdateProfileEmail(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	ctx := context.Background()

	u, err := st.CreateUser(ctx, CreateUserInput{
		Username:     "ava",
		Email:        "ava@example.com",
		FullName:     "Ava Stone",
		PasswordHash: "digest",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := st.CreateUser(ctx, CreateUserInput{
		Username:     "ben",
		Email:        "ben@example.com",
		FullName:     "Ben Ode",
		PasswordHash: "digest",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Taking another user's email conflicts.
	taken := "BEN@example.com"
	if _, err := st.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &taken}); !IsConflict(err) {
		t.Fatalf("expected email conflict, got %v", err)
	}

	// Re-submitting your own email is a no-op, not a conflict.
	own := "Ava@Example.com"
	if _, err := st.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &own}); err != nil {
		t.Fatalf("own email: %v", err)
	}

	fresh := "ava.stone@example.com"
	got, err := st.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &fresh})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Email != fresh {
		t.Fatalf("email not applied: %+v", got)
	}

	// The new address resolves, the old one is freed for reuse.
	if ua, err := st.GetByLogin(ctx, fresh); err != nil || ua.User.ID != u.ID {
		t.Fatalf("GetByLogin(new): %v", err)
	}
	if _, err := st.GetByLogin(ctx, "ava@example.com"); !IsNotFound(err) {
		t.Fatalf("old email must be released, got %v", err)
	}

	empty := "   "
	if _, err := st.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &empty}); !IsInvalidInput(err) {
		t.Fatalf("expected invalid_input for blank email, got %v", err)
	}
}
