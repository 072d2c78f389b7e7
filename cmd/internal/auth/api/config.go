package authapi

// Config controls auth API request handling.
type Config struct {
	// MaxBodyBytes caps JSON and form bodies.
	MaxBodyBytes int64
	// TrustProxy makes audit records take the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

// DefaultConfig returns a 1 MiB body cap and ignores proxy headers.
func DefaultConfig() Config {
	return Config{MaxBodyBytes: 1 << 20}
}

func (c Config) normalized() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	return c
}
