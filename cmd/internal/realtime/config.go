package realtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls the websocket gateway. Zero values fall back to defaults.
type Config struct {
	// OriginRequired rejects upgrades without an Origin header.
	OriginRequired bool `env:"TASKFLOW_WS_ORIGIN_REQUIRED"`
	// AllowedOrigins lists full origins or bare hosts; "*" allows any.
	AllowedOrigins []string `env:"TASKFLOW_WS_ALLOWED_ORIGINS" envSeparator:","`
	// DevInsecure disables the websocket library's own origin check.
	DevInsecure bool `env:"TASKFLOW_WS_DEV_INSECURE"`

	HelloTimeout      time.Duration `env:"TASKFLOW_WS_HELLO_TIMEOUT"`
	WriteTimeout      time.Duration `env:"TASKFLOW_WS_WRITE_TIMEOUT"`
	HeartbeatInterval time.Duration `env:"TASKFLOW_WS_HEARTBEAT_INTERVAL"`
	HeartbeatTimeout  time.Duration `env:"TASKFLOW_WS_HEARTBEAT_TIMEOUT"`

	SendQueueSize int           `env:"TASKFLOW_WS_SEND_QUEUE"`
	RateEvents    int           `env:"TASKFLOW_WS_RATE_EVENTS"`
	RateWindow    time.Duration `env:"TASKFLOW_WS_RATE_WINDOW"`
}

// DefaultConfig requires an Origin and allows only localhost.
func DefaultConfig() Config {
	return Config{
		OriginRequired:    true,
		AllowedOrigins:    []string{"http://localhost", "http://127.0.0.1"},
		HelloTimeout:      defaultHelloTimeout,
		WriteTimeout:      defaultWriteTimeout,
		HeartbeatInterval: heartbeatInterval,
		HeartbeatTimeout:  heartbeatTimeout,
		SendQueueSize:     defaultSendQueueSize,
		RateEvents:        rateLimitEvents,
		RateWindow:        rateLimitWindow,
	}
}

// ConfigFromEnv overlays TASKFLOW_WS_* onto DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("realtime config: %w", err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.HelloTimeout <= 0 {
		c.HelloTimeout = def.HelloTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.SendQueueSize < minSendQueueSize {
		c.SendQueueSize = minSendQueueSize
	}
	if c.RateEvents <= 0 {
		c.RateEvents = def.RateEvents
	}
	if c.RateWindow <= 0 {
		c.RateWindow = def.RateWindow
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	return c
}
