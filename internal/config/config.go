package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"BulletScreen/pkg/logger"
)

const (
	defaultLookupURL  = "https://api.bilibili.com/x/player/pagelist"
	defaultCommentURL = "https://api.bilibili.com/x/v1/dm/list.so"
	defaultTimeout    = 5 * time.Second
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0 Safari/537.36"

	configPathEnv = "BULLETSCREEN_CONFIG"
	lookupURLEnv  = "BULLETSCREEN_LOOKUP_URL"
	commentURLEnv = "BULLETSCREEN_COMMENT_URL"
	timeoutEnv    = "BULLETSCREEN_TIMEOUT"
	addrEnv       = "BULLETSCREEN_ADDR"
	logLevelEnv   = "LOG_LEVEL"
)

var bootLog = logger.New("config")

// Config holds high-level settings required across the application.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// UpstreamConfig describes the lookup and comment-stream endpoints.
type UpstreamConfig struct {
	LookupURL  string        `yaml:"lookupUrl"`
	CommentURL string        `yaml:"commentUrl"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"userAgent"`
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	Debug           bool          `yaml:"debug"`
}

// LoggingConfig selects log verbosity and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit file path; an empty path skips the file.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			bootLog.Printf("cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				bootLog.Printf("cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = defaultTimeout
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(lookupURLEnv); v != "" {
		c.Upstream.LookupURL = v
	}

	if v := os.Getenv(commentURLEnv); v != "" {
		c.Upstream.CommentURL = v
	}

	if v := os.Getenv(timeoutEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			bootLog.Printf("invalid %s=%q: %v (keeping %s)", timeoutEnv, v, err, c.Upstream.Timeout)
		} else {
			c.Upstream.Timeout = d
		}
	}

	if v := os.Getenv(addrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Upstream.LookupURL != "" {
		base.Upstream.LookupURL = override.Upstream.LookupURL
	}
	if override.Upstream.CommentURL != "" {
		base.Upstream.CommentURL = override.Upstream.CommentURL
	}
	if override.Upstream.Timeout > 0 {
		base.Upstream.Timeout = override.Upstream.Timeout
	}
	if override.Upstream.UserAgent != "" {
		base.Upstream.UserAgent = override.Upstream.UserAgent
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ReadTimeout > 0 {
		base.Server.ReadTimeout = override.Server.ReadTimeout
	}
	if override.Server.WriteTimeout > 0 {
		base.Server.WriteTimeout = override.Server.WriteTimeout
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}
	base.Server.Debug = base.Server.Debug || override.Server.Debug

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Upstream: UpstreamConfig{
			LookupURL:  defaultLookupURL,
			CommentURL: defaultCommentURL,
			Timeout:    defaultTimeout,
			UserAgent:  defaultUserAgent,
		},
		Server: ServerConfig{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
