package internal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/novaspage/internal/bufferpool"
	"github.com/tuannm99/novaspage/internal/heap"
)

const envPrefix = "NOVASPAGE"

type NovaSpageConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Workdir string `mapstructure:"workdir"`
	} `mapstructure:"storage"`

	BufferPool struct {
		Capacity int    `mapstructure:"capacity"`
		Policy   string `mapstructure:"policy"`
	} `mapstructure:"bufferpool"`

	Scan struct {
		MaxScans int `mapstructure:"max_scans"`
	} `mapstructure:"scan"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novaspage")
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("bufferpool.capacity", bufferpool.DefaultCapacity)
	v.SetDefault("bufferpool.policy", string(bufferpool.PolicyLRU))
	v.SetDefault("scan.max_scans", heap.DefaultMaxScans)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads a YAML file (optional: "" means defaults only) and applies
// NOVASPAGE_* environment overrides, e.g. NOVASPAGE_BUFFERPOOL_POLICY=CLOCK.
func LoadConfig(path string) (*NovaSpageConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg NovaSpageConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *NovaSpageConfig) Validate() error {
	if c.Storage.Workdir == "" {
		return fmt.Errorf("config: storage.workdir is empty")
	}
	if c.BufferPool.Capacity <= 0 {
		return fmt.Errorf("config: bufferpool.capacity must be positive, got %d", c.BufferPool.Capacity)
	}
	if _, err := bufferpool.ParsePolicy(c.BufferPool.Policy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Scan.MaxScans <= 0 {
		return fmt.Errorf("config: scan.max_scans must be positive, got %d", c.Scan.MaxScans)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Policy is the parsed replacement policy; call after Validate.
func (c *NovaSpageConfig) Policy() bufferpool.Policy {
	p, _ := bufferpool.ParsePolicy(c.BufferPool.Policy)
	return p
}

func (c *NovaSpageConfig) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger returns a text logger at the configured level, tagged with the
// app name.
func (c *NovaSpageConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := c.LogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("app", c.AppName)
}
