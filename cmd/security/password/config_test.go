package password

import (
	"errors"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"TASKFLOW_PASSWORD_MIN_LEN",
		"TASKFLOW_PASSWORD_MAX_LEN",
		"TASKFLOW_PASSWORD_REJECT_VERY_WEAK",
		"TASKFLOW_ARGON2_MEMORY_KIB",
		"TASKFLOW_ARGON2_ITERATIONS",
		"TASKFLOW_ARGON2_PARALLELISM",
		"TASKFLOW_ARGON2_SALT_LEN",
		"TASKFLOW_ARGON2_KEY_LEN",
	} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("FromEnv()=%+v want=%+v", cfg, def)
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("TASKFLOW_PASSWORD_MIN_LEN", "10")
	t.Setenv("TASKFLOW_PASSWORD_MAX_LEN", "200")
	t.Setenv("TASKFLOW_PASSWORD_REJECT_VERY_WEAK", "true")
	t.Setenv("TASKFLOW_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("TASKFLOW_ARGON2_ITERATIONS", "4")
	t.Setenv("TASKFLOW_ARGON2_PARALLELISM", "2")
	t.Setenv("TASKFLOW_ARGON2_SALT_LEN", "24")
	t.Setenv("TASKFLOW_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("TASKFLOW_PASSWORD_MIN_LEN", "20")
	t.Setenv("TASKFLOW_PASSWORD_MAX_LEN", "10")

	_, err := FromEnv()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFromEnv_OutOfRangeCost(t *testing.T) {
	t.Setenv("TASKFLOW_ARGON2_ITERATIONS", "500")

	_, err := FromEnv()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFromEnv_Unparseable(t *testing.T) {
	t.Setenv("TASKFLOW_ARGON2_MEMORY_KIB", "lots")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected parse error")
	}
}
