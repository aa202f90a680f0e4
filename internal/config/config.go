// Package config resolves runtime settings from defaults, an optional config
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"ankimcp/internal/ankiconnect"
)

const (
	// EnvPrefix namespaces environment overrides: anki.url is ANKI_MCP_ANKI_URL.
	EnvPrefix = "ANKI_MCP"
	fileName  = "anki-mcp"
	dirName   = "anki-mcp"
)

type Config struct {
	Anki   AnkiConfig   `mapstructure:"anki"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type AnkiConfig struct {
	URL     string        `mapstructure:"url"`
	Version int           `mapstructure:"version"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Name               string `mapstructure:"name"`
	Version            string `mapstructure:"version"`
	RequireInitialized bool   `mapstructure:"require_initialized"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anki.url", ankiconnect.DefaultURL)
	v.SetDefault("anki.version", ankiconnect.DefaultVersion)
	v.SetDefault("anki.timeout", ankiconnect.DefaultTimeout)
	v.SetDefault("server.name", "anki-mcp")
	v.SetDefault("server.version", "2.0.0")
	v.SetDefault("server.require_initialized", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads path when given, otherwise looks for anki-mcp.{toml,yaml,json}
// in the user config dir and then the working directory. A missing default
// file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The unprefixed names are the ones the logging setup has always honoured.
	_ = v.BindEnv("log.level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.file", EnvPrefix+"_LOG_FILE", "LOG_FILE")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	logrus.WithField("file", cfg.File).Debug("config loaded")
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Anki.URL) == "":
		return errors.New("config: anki.url must not be empty")
	case c.Anki.Version <= 0:
		return fmt.Errorf("config: anki.version must be positive, got %d", c.Anki.Version)
	case c.Anki.Timeout <= 0:
		return fmt.Errorf("config: anki.timeout must be positive, got %s", c.Anki.Timeout)
	}
	return nil
}

// ClientOptions turns the anki section into backend client options.
func (c Config) ClientOptions() []ankiconnect.Option {
	return []ankiconnect.Option{
		ankiconnect.WithURL(c.Anki.URL),
		ankiconnect.WithVersion(c.Anki.Version),
		ankiconnect.WithTimeout(c.Anki.Timeout),
	}
}

// Dir is ~/.config/anki-mcp.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", dirName), nil
}

// DefaultPath is where config init writes when no path is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName+".toml"), nil
}

const defaultTemplate = `# anki-mcp configuration
# Every key can also be set from the environment, e.g. ANKI_MCP_ANKI_URL.

[anki]
# AnkiConnect endpoint
url = %q
# AnkiConnect API version sent with every request
version = %d
# Per-request timeout
timeout = %q

[server]
name = "anki-mcp"
version = "2.0.0"
# Reject tools/* and resources/* until the client acknowledges initialization
require_initialized = false

[log]
# trace, debug, info, warn or error (LOG_LEVEL also works)
level = "info"
# Duplicate logs to this file; ~ is expanded (LOG_FILE also works)
# file = "~/.config/anki-mcp/anki-mcp.log"
`

// DefaultFile renders the commented default config.
func DefaultFile() string {
	return fmt.Sprintf(defaultTemplate, ankiconnect.DefaultURL, ankiconnect.DefaultVersion, ankiconnect.DefaultTimeout.String())
}

// WriteDefault writes DefaultFile to path, creating parent directories. An
// existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(DefaultFile()), 0o644); err != nil {
		return err
	}
	logrus.WithField("path", path).Info("wrote config")
	return nil
}
