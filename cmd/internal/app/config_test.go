package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TASKFLOW_SECRET_KEY", "config-test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "TaskFlow API", cfg.ProjectName)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "public", cfg.DBSchema)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, 6, cfg.Password.Policy.MinLength)
	assert.True(t, cfg.WS.OriginRequired)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("TASKFLOW_SECRET_KEY", "config-test-secret")
	t.Setenv("TASKFLOW_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("TASKFLOW_API_PREFIX", "api/v2/")
	t.Setenv("TASKFLOW_ACCESS_TOKEN_TTL", "45m")
	t.Setenv("TASKFLOW_DB_SCHEMA", "taskflow")
	t.Setenv("TASKFLOW_RUN_MIGRATIONS", "false")
	t.Setenv("TASKFLOW_CORS_ALLOWED_ORIGINS", " https://app.example.com/ , ,http://127.0.0.1:*")
	t.Setenv("TASKFLOW_PASSWORD_MIN_LEN", "10")
	t.Setenv("TASKFLOW_WS_SEND_QUEUE", "128")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "/api/v2", cfg.APIPrefix)
	assert.Equal(t, 45*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "taskflow", cfg.DBSchema)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, []string{"https://app.example.com", "http://127.0.0.1:*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.Password.Policy.MinLength)
	assert.Equal(t, 128, cfg.WS.SendQueueSize)
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {"TASKFLOW_SECRET_KEY": ""},
		"bad schema":     {"TASKFLOW_SECRET_KEY": "s", "TASKFLOW_DB_SCHEMA": "drop;table"},
		"zero ttl":       {"TASKFLOW_SECRET_KEY": "s", "TASKFLOW_ACCESS_TOKEN_TTL": "0s"},
		"pool bounds":    {"TASKFLOW_SECRET_KEY": "s", "TASKFLOW_DB_MIN_CONNS": "20", "TASKFLOW_DB_MAX_CONNS": "5"},
		"bad duration":   {"TASKFLOW_SECRET_KEY": "s", "TASKFLOW_HTTP_READ_TIMEOUT": "soon"},
		"bad argon2":     {"TASKFLOW_SECRET_KEY": "s", "TASKFLOW_ARGON2_ITERATIONS": "0"},
	}

	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
