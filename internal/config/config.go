package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Backend selection
	BackendURL   string `mapstructure:"backend_url" yaml:"backend_url"`
	Source       string `mapstructure:"source" yaml:"source"`
	SnapshotPath string `mapstructure:"snapshot_path" yaml:"snapshot_path,omitempty"`

	// Data browser
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Assistant call bounds
	HealthTimeoutMs  int `mapstructure:"health_timeout_ms" yaml:"health_timeout_ms"`
	ContextTimeoutMs int `mapstructure:"context_timeout_ms" yaml:"context_timeout_ms"`
	ChatTimeoutMs    int `mapstructure:"chat_timeout_ms" yaml:"chat_timeout_ms"`

	// Web dashboard
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	SessionSecret string `mapstructure:"session_secret" yaml:"session_secret,omitempty"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	HideIntro bool   `mapstructure:"hide_intro" yaml:"hide_intro"`
}

// Keys lists every settable key, in display order.
var Keys = []string{
	"backend_url", "source", "snapshot_path", "page_size",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"health_timeout_ms", "context_timeout_ms", "chat_timeout_ms",
	"listen_addr", "session_secret", "log_level", "hide_intro",
}

// Dir returns ~/.titanic.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".titanic"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.titanic/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// session_secret may be present
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, env, config file and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TITANIC")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a file that exists but does not parse is an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", "http://localhost:5000/api")
	v.SetDefault("source", "http")
	v.SetDefault("snapshot_path", "")
	v.SetDefault("page_size", 10)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// assistant bounds
	v.SetDefault("health_timeout_ms", 3000)
	v.SetDefault("context_timeout_ms", 3000)
	v.SetDefault("chat_timeout_ms", 10000)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("session_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("hide_intro", false)
}

// HTTPTimeout and friends convert the integer settings into durations.
func (c *Global) HTTPTimeout() time.Duration { return time.Duration(c.HTTPTimeoutSec) * time.Second }

func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

func (c *Global) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutMs) * time.Millisecond
}

func (c *Global) ContextTimeout() time.Duration {
	return time.Duration(c.ContextTimeoutMs) * time.Millisecond
}

func (c *Global) ChatTimeout() time.Duration {
	return time.Duration(c.ChatTimeoutMs) * time.Millisecond
}

// Set assigns a single key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "backend_url":
		c.BackendURL = strings.TrimRight(val, "/")
	case "source":
		switch strings.ToLower(val) {
		case "http", "snapshot":
			c.Source = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid source: %s (use http or snapshot)", val)
		}
	case "snapshot_path":
		c.SnapshotPath = val
	case "page_size":
		var i int
		if i, err = atoi(); err == nil {
			if i == 0 {
				return fmt.Errorf("page_size must be positive")
			}
			c.PageSize = i
		}
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "health_timeout_ms":
		c.HealthTimeoutMs, err = atoi()
	case "context_timeout_ms":
		c.ContextTimeoutMs, err = atoi()
	case "chat_timeout_ms":
		c.ChatTimeoutMs, err = atoi()
	case "listen_addr":
		c.ListenAddr = val
	case "session_secret":
		c.SessionSecret = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	case "hide_intro":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for hide_intro: %v", val)
		}
		c.HideIntro = b
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// Get returns the string form of key, for `config show`.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "backend_url":
		return c.BackendURL, true
	case "source":
		return c.Source, true
	case "snapshot_path":
		return c.SnapshotPath, true
	case "page_size":
		return strconv.Itoa(c.PageSize), true
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), true
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), true
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), true
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), true
	case "health_timeout_ms":
		return strconv.Itoa(c.HealthTimeoutMs), true
	case "context_timeout_ms":
		return strconv.Itoa(c.ContextTimeoutMs), true
	case "chat_timeout_ms":
		return strconv.Itoa(c.ChatTimeoutMs), true
	case "listen_addr":
		return c.ListenAddr, true
	case "session_secret":
		return c.SessionSecret, true
	case "log_level":
		return c.LogLevel, true
	case "hide_intro":
		return strconv.FormatBool(c.HideIntro), true
	}
	return "", false
}
