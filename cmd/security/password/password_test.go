package password

import (
	"errors"
	"strings"
	"testing"
)

func cheapConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestHashAndVerify_OK(t *testing.T) {
	cfg := cheapConfig()

	h, err := cfg.Hash("this is a strong password 123!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "this is a strong password 123!")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding: %q", h)
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := cheapConfig()

	h, err := cfg.Hash("this is a strong password 123!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "wrong password")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	cfg := cheapConfig()

	a, err := cfg.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := cfg.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("expected different encodings for repeated hashes")
	}
	if !cfg.Matches(a, "same-input") || !cfg.Matches(b, "same-input") {
		t.Fatalf("both hashes must verify")
	}
}

func TestHash_LongPasswordNotTruncated(t *testing.T) {
	cfg := cheapConfig()

	prefix := strings.Repeat("p", 500)
	h, err := cfg.Hash(prefix + "-tail-a")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !cfg.Matches(h, prefix+"-tail-a") {
		t.Fatalf("expected match for the exact long password")
	}
	if cfg.Matches(h, prefix+"-tail-b") {
		t.Fatalf("passwords differing past byte 72 must not match")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := cheapConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever")
	if !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}

func TestMatches_CorruptHashIsFalse(t *testing.T) {
	cfg := cheapConfig()

	h, err := cfg.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := []string{
		"",
		"$argon2id$v=19$m=8192,t=1,p=1$%%%$%%%",
		strings.Replace(h, "argon2id", "argon2i", 1),
		strings.Replace(h, "v=19", "v=16", 1),
		h[:len(h)-10],
		"$argon2id$v=19$m=99999999,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
	}
	for _, c := range cases {
		if cfg.Matches(c, "correct horse") {
			t.Fatalf("Matches(%q) = true, want false", c)
		}
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 12
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	if err := cfg.Validate("goodpassw0rd!"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidate_UnboundedByDefault(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(strings.Repeat("x", 10_000)); err != nil {
		t.Fatalf("expected ok for long password, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.RejectVeryWeak = true
	cfg.Policy.MinLength = 8

	if err := cfg.Validate("password"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := cfg.Validate("11111111"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := cfg.Validate("a-very-ok-pass"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func BenchmarkVerify_DefaultConfig(b *testing.B) {
	cfg := DefaultConfig()
	pw := "this is a strong password 123!"
	h, err := cfg.Hash(pw)
	if err != nil {
		b.Fatalf("Hash error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !cfg.Matches(h, pw) {
			b.Fatalf("Matches failed")
		}
	}
}
