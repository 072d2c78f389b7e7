package identity

import (
	"testing"

	"taskflow/cmd/security/password"
)

// cheapHasher keeps argon2 cost at the package minimum so tests stay fast.
func cheapHasher(t *testing.T) password.Config {
	t.Helper()
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	if err := cfg.Check(); err != nil {
		t.Fatalf("cheap config: %v", err)
	}
	return cfg
}

func strPtr(s string) *string { return &s }
