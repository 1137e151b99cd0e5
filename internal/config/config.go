package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/liamcoop/iris/classifier"
	"github.com/liamcoop/iris/internal/logger"
	"github.com/spf13/viper"
)

// Engine names accepted by the engine setting
const (
	EngineNative = classifier.EngineNative
	EngineCEL    = classifier.EngineCEL
)

// Config is the application configuration
type Config struct {
	HTTP         HTTPConfig    `mapstructure:"http"`
	Session      SessionConfig `mapstructure:"session"`
	Log          LogConfig     `mapstructure:"log"`
	Engine       string        `mapstructure:"engine"`
	PredictDelay time.Duration `mapstructure:"predict_delay"` // simulated latency before a result is shown
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	SlowRequest  time.Duration `mapstructure:"slow_request"`
}

// SessionConfig configures form sessions
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LogConfig configures logging
type LogConfig struct {
	Level      string `mapstructure:"level"`
	SampleRate int    `mapstructure:"sample_rate"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.slow_request", 3*time.Second)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("log.level", "")
	v.SetDefault("log.sample_rate", 1)
	v.SetDefault("engine", EngineNative)
	v.SetDefault("predict_delay", time.Second)
}

// Load reads configuration from defaults, an optional YAML file and the
// environment. Environment variables use the IRIS_ prefix with dots
// replaced by underscores (IRIS_HTTP_PORT); PORT is also honored.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("IRIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("http.port", "IRIS_HTTP_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env failed: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}
	if c.Engine != EngineNative && c.Engine != EngineCEL {
		return fmt.Errorf("engine must be %q or %q, got %q", EngineNative, EngineCEL, c.Engine)
	}
	if c.PredictDelay < 0 {
		return fmt.Errorf("predict_delay must not be negative")
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	if c.Session.TTL > 0 && c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive when session.ttl is set")
	}
	if c.PredictDelay >= c.HTTP.WriteTimeout {
		return fmt.Errorf("predict_delay (%s) must be shorter than http.write_timeout (%s)", c.PredictDelay, c.HTTP.WriteTimeout)
	}
	if c.Log.SampleRate < 1 {
		return fmt.Errorf("log.sample_rate must be at least 1")
	}
	if c.Log.Level != "" {
		if _, err := logger.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.HTTP.Port
}
