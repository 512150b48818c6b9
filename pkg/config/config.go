package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MIRROR"

// Config stores all configuration for the application.
type Config struct {
	OutputDir     string        `mapstructure:"OUTPUT_DIR"`
	Depth         int           `mapstructure:"DEPTH"`
	ConvertLinks  bool          `mapstructure:"CONVERT_LINKS"`
	Quiet         bool          `mapstructure:"QUIET"`
	Verbose       bool          `mapstructure:"VERBOSE"`
	LogJSON       bool          `mapstructure:"LOG_JSON"`
	Render        bool          `mapstructure:"RENDER"`
	RenderTimeout time.Duration `mapstructure:"RENDER_TIMEOUT"`
	Scanner       string        `mapstructure:"SCANNER"`
	SiblingPolicy string        `mapstructure:"SIBLING_POLICY"`
	UserAgent     string        `mapstructure:"USER_AGENT"`
	Timeout       time.Duration `mapstructure:"TIMEOUT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`

	ServerPort        string `mapstructure:"SERVER_PORT"`
	MaxConcurrentJobs int    `mapstructure:"MAX_CONCURRENT_JOBS"`
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"output":         "OUTPUT_DIR",
	"depth":          "DEPTH",
	"convert-links":  "CONVERT_LINKS",
	"quiet":          "QUIET",
	"verbose":        "VERBOSE",
	"log-json":       "LOG_JSON",
	"render":         "RENDER",
	"scanner":        "SCANNER",
	"sibling-policy": "SIBLING_POLICY",
	"user-agent":     "USER_AGENT",
	"timeout":        "TIMEOUT",
	"redis-addr":     "REDIS_ADDR",
	"postgres-url":   "POSTGRES_URL",
	"port":           "SERVER_PORT",
	"max-jobs":       "MAX_CONCURRENT_JOBS",
}

// Load reads configuration from defaults, an optional env file, MIRROR_*
// environment variables and, last, any flags in fs that were set explicitly.
// fs may be nil. An empty envFile defaults to ".env".
func Load(fs *pflag.FlagSet, envFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if envFile == "" {
		envFile = ".env"
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// The env file is optional; plain environment variables are enough.
	_ = v.ReadInConfig()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("OUTPUT_DIR", ".")
	v.SetDefault("DEPTH", 0)
	v.SetDefault("CONVERT_LINKS", false)
	v.SetDefault("QUIET", false)
	v.SetDefault("VERBOSE", false)
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("RENDER", false)
	v.SetDefault("RENDER_TIMEOUT", 30*time.Second)
	v.SetDefault("SCANNER", "regex")
	v.SetDefault("SIBLING_POLICY", "revisit")
	v.SetDefault("USER_AGENT", "")
	v.SetDefault("TIMEOUT", 30*time.Second)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("MAX_CONCURRENT_JOBS", 4)
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Depth < 0 {
		errs = append(errs, fmt.Errorf("depth must be non-negative, got %d", c.Depth))
	}
	switch c.Scanner {
	case "regex", "dom":
	default:
		errs = append(errs, fmt.Errorf("unknown scanner %q (want regex or dom)", c.Scanner))
	}
	switch c.SiblingPolicy {
	case "revisit", "once":
	default:
		errs = append(errs, fmt.Errorf("unknown sibling policy %q (want revisit or once)", c.SiblingPolicy))
	}
	if c.MaxConcurrentJobs < 1 {
		errs = append(errs, fmt.Errorf("max concurrent jobs must be at least 1, got %d", c.MaxConcurrentJobs))
	}
	return errors.Join(errs...)
}
