package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, EngineNative, cfg.Engine)
	assert.Equal(t, time.Second, cfg.PredictDelay)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 1, cfg.Log.SampleRate)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iris.yaml")
	content := `
http:
  port: "9090"
  write_timeout: 20s
engine: cel
predict_delay: 250ms
session:
  ttl: 5m
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 20*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, EngineCEL, cfg.Engine)
	assert.Equal(t, 250*time.Millisecond, cfg.PredictDelay)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IRIS_ENGINE", "CEL")
	t.Setenv("IRIS_PREDICT_DELAY", "0s")
	t.Setenv("IRIS_SESSION_TTL", "0s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EngineCEL, cfg.Engine)
	assert.Equal(t, time.Duration(0), cfg.PredictDelay)
	assert.Equal(t, time.Duration(0), cfg.Session.TTL)
}

func TestLoadPortEnv(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr())

	t.Setenv("IRIS_HTTP_PORT", "4000")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Addr(), "IRIS_HTTP_PORT takes precedence over PORT")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:         HTTPConfig{Port: "8080", WriteTimeout: 15 * time.Second},
			Session:      SessionConfig{TTL: time.Minute, SweepInterval: time.Minute},
			Log:          LogConfig{SampleRate: 1},
			Engine:       EngineNative,
			PredictDelay: time.Second,
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing port", func(c *Config) { c.HTTP.Port = "" }},
		{"unknown engine", func(c *Config) { c.Engine = "tensorflow" }},
		{"negative delay", func(c *Config) { c.PredictDelay = -time.Second }},
		{"delay longer than write timeout", func(c *Config) { c.PredictDelay = time.Minute }},
		{"negative ttl", func(c *Config) { c.Session.TTL = -time.Second }},
		{"ttl without sweep interval", func(c *Config) { c.Session.SweepInterval = 0 }},
		{"zero sample rate", func(c *Config) { c.Log.SampleRate = 0 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	for _, level := range []string{"", "trace", "DEBUG", "warning"} {
		c := valid()
		c.Log.Level = level
		assert.NoError(t, c.Validate(), "log level %q", level)
	}
}
