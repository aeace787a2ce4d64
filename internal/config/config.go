package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Signals SignalsConfig `yaml:"signals" mapstructure:"signals"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Tenant  TenantConfig  `yaml:"tenant" mapstructure:"tenant"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// EngineConfig tunes the scoring engine.
type EngineConfig struct {
	BatchSize           int     `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency         int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit           float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	FailureThreshold    int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	RecoveryTimeoutSecs int     `yaml:"recovery_timeout_secs" mapstructure:"recovery_timeout_secs"`
}

// SignalsConfig points at the extraction rule tables.
type SignalsConfig struct {
	// RulesPath overrides the built-in keyword tables with a YAML file.
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // "memory" or "redis"
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// TenantConfig selects and configures tenant validation.
type TenantConfig struct {
	Driver      string   `yaml:"driver" mapstructure:"driver"` // "static" or "postgres"
	DatabaseURL string   `yaml:"database_url" mapstructure:"database_url"`
	Allowlist   []string `yaml:"allowlist" mapstructure:"allowlist"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.batch_size", 50)
	v.SetDefault("engine.concurrency", 10)
	v.SetDefault("engine.failure_threshold", 5)
	v.SetDefault("engine.recovery_timeout_secs", 300)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("tenant.driver", "static")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode: "cli" for
// one-shot commands, "serve" for the API server. All problems are
// reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Engine.BatchSize < 1 || c.Engine.BatchSize > 500 {
		problems = append(problems, "engine.batch_size must be between 1 and 500")
	}
	if c.Engine.Concurrency < 1 || c.Engine.Concurrency > 100 {
		problems = append(problems, "engine.concurrency must be between 1 and 100")
	}
	if c.Engine.RateLimit < 0 {
		problems = append(problems, "engine.rate_limit must be >= 0")
	}
	if c.Engine.FailureThreshold < 1 {
		problems = append(problems, "engine.failure_threshold must be >= 1")
	}
	if c.Engine.RecoveryTimeoutSecs < 1 {
		problems = append(problems, "engine.recovery_timeout_secs must be >= 1")
	}

	switch c.Cache.Driver {
	case "memory", "":
	case "redis":
		if c.Cache.Addr == "" {
			problems = append(problems, "cache.addr is required for the redis driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache.driver %q", c.Cache.Driver))
	}

	switch c.Tenant.Driver {
	case "static", "":
	case "postgres":
		if c.Tenant.DatabaseURL == "" {
			problems = append(problems, "tenant.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown tenant.driver %q", c.Tenant.Driver))
	}

	switch mode {
	case "cli":
	case "serve":
		if c.Server.Port < 1 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
