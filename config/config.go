package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/henrlaas/medialib"
	"github.com/henrlaas/medialib/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "MEDIALIB"

// Config holds the settings shared by the medialib commands.
type Config struct {
	// Backend addresses, see backend.ParseBackendAddress
	Storage  string `mapstructure:"storage"`
	Metadata string `mapstructure:"metadata"`

	// User is the acting user id for favorites and uploads
	User string `mapstructure:"user"`

	Log     LogConfig     `mapstructure:"log"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	NoTerminal bool   `mapstructure:"no_terminal"`
	NoColor    bool   `mapstructure:"no_color"`
	JSON       bool   `mapstructure:"json"`
}

type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	DryRun   bool          `mapstructure:"dry_run"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// Load reads the configuration from path, or searches the default locations when path
// is empty. Environment variables prefixed with MEDIALIB_ override file values, nested
// keys use '_' as separator (MEDIALIB_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("medialib")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.medialib")
		v.AddConfigPath("/etc/medialib")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file, defaults and environment only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage", ":ephemeral:")
	v.SetDefault("metadata", "")
	v.SetDefault("user", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.no_terminal", false)
	v.SetDefault("log.no_color", false)
	v.SetDefault("log.json", false)

	v.SetDefault("sweep.interval", 15*time.Minute)
	v.SetDefault("sweep.dry_run", false)

	v.SetDefault("metrics.address", ":9090")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage) == "" {
		return fmt.Errorf("storage address must not be empty")
	}
	if _, err := log.Parse(c.Log.Level); err != nil {
		return err
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.Sweep.Interval)
	}
	return nil
}

// Logger creates the root logger described by the log section.
func (c *Config) Logger() (*log.Logger, error) {
	level, err := log.Parse(c.Log.Level)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger("medialib", level, c.Log.File, c.Log.NoTerminal)
	logger.NoColor = c.Log.NoColor
	logger.JSON = c.Log.JSON

	return logger, nil
}

// LibraryOptions converts the configuration into library options.
func (c *Config) LibraryOptions() ([]medialib.LibraryOption, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	return []medialib.LibraryOption{
		medialib.WithLogger(logger),
	}, nil
}

// Default returns the configuration built from defaults only, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("invalid default config: %v", err))
	}
	return &cfg
}
