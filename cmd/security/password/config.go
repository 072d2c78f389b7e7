package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32 `env:"TASKFLOW_ARGON2_MEMORY_KIB"`
	Iterations  uint32 `env:"TASKFLOW_ARGON2_ITERATIONS"`
	Parallelism uint8  `env:"TASKFLOW_ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"TASKFLOW_ARGON2_SALT_LEN"`
	KeyLength   uint32 `env:"TASKFLOW_ARGON2_KEY_LEN"`
}

// Policy controls password validation at registration and password change.
// MaxLength 0 means unbounded.
type Policy struct {
	MinLength      int  `env:"TASKFLOW_PASSWORD_MIN_LEN"`
	MaxLength      int  `env:"TASKFLOW_PASSWORD_MAX_LEN"`
	RejectVeryWeak bool `env:"TASKFLOW_PASSWORD_REJECT_VERY_WEAK"`
}

// Config is the single configuration surface for this package.
// It is built once at startup and passed by value.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline cost and policy.
func DefaultConfig() Config {
	// Parallelism follows the host but is clamped to [1..4] for predictable container usage.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 6,
		},
	}
}

// FromEnv overlays TASKFLOW_ARGON2_* and TASKFLOW_PASSWORD_* onto DefaultConfig
// and validates the result.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Check reports whether every parameter is inside the supported range.
func (c Config) Check() error {
	p := c.Params
	switch {
	case p.MemoryKiB < 8*1024 || p.MemoryKiB > 1024*1024:
		return fmt.Errorf("%w: memory_kib out of range [%d..%d]", ErrInvalidConfig, 8*1024, 1024*1024)
	case p.Iterations < 1 || p.Iterations > 20:
		return fmt.Errorf("%w: iterations out of range [1..20]", ErrInvalidConfig)
	case p.Parallelism < 1 || p.Parallelism > 64:
		return fmt.Errorf("%w: parallelism out of range [1..64]", ErrInvalidConfig)
	case p.SaltLength < 8 || p.SaltLength > 64:
		return fmt.Errorf("%w: salt_len out of range [8..64]", ErrInvalidConfig)
	case p.KeyLength < 16 || p.KeyLength > 64:
		return fmt.Errorf("%w: key_len out of range [16..64]", ErrInvalidConfig)
	}

	if c.Policy.MinLength < 1 || c.Policy.MinLength > 1024 {
		return fmt.Errorf("%w: min_len out of range [1..1024]", ErrInvalidConfig)
	}
	if c.Policy.MaxLength != 0 && c.Policy.MaxLength < c.Policy.MinLength {
		return fmt.Errorf("%w: min_len(%d) > max_len(%d)", ErrInvalidConfig, c.Policy.MinLength, c.Policy.MaxLength)
	}
	return nil
}
