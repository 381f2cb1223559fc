package password

import (
	"strings"
	"testing"
)

// Fast params keep unit tests quick; production defaults are far heavier.
func testConfig() Config {
	return Config{
		Params: Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{MinLength: 8, MaxLength: 256},
	}
}

func TestHashAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	enc, err := cfg.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(enc, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash prefix: %q", enc)
	}

	ok, err := cfg.Verify(enc, "correct horse battery")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}

	ok, err = cfg.Verify(enc, "wrong password!!")
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_MalformedHashIsMismatchNotError(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	cases := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$???",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	}
	for _, enc := range cases {
		ok, err := cfg.Verify(enc, "whatever-secret")
		if err != nil {
			t.Fatalf("Verify(%q) returned error: %v", enc, err)
		}
		if ok {
			t.Fatalf("Verify(%q) matched", enc)
		}
	}
}

func TestVerify_RefusesPathologicalParams(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	// Attacker-controlled digest demanding 1 GiB of memory.
	enc := "$argon2id$v=19$m=1048576,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY"
	ok, err := cfg.Verify(enc, "whatever-secret")
	if err != nil || ok {
		t.Fatalf("expected bounded mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestHash_PolicyEnforced(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	if _, err := cfg.Hash("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := cfg.Hash(strings.Repeat("x", 300)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TUBE_PASSWORD_MIN_LEN", "10")
	t.Setenv("TUBE_ARGON2_ITERATIONS", "2")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Policy.MinLength != 10 {
		t.Fatalf("MinLength=%d want 10", cfg.Policy.MinLength)
	}
	if cfg.Params.Iterations != 2 {
		t.Fatalf("Iterations=%d want 2", cfg.Params.Iterations)
	}
}

func TestFromEnv_RejectsInvalid(t *testing.T) {
	t.Setenv("TUBE_ARGON2_MEMORY_KIB", "1")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for out-of-range memory")
	}
}
