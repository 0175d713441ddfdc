// Package config loads CLI configuration from built-in defaults, an optional YAML
// file and the environment, in that order. Secrets may come from the environment
// but are never written back; the keychain holds them between runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/validate"
	"supersetctl/cli/internal/xdg"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "SUPERSETCTL_CONFIG"

// FileName is the config file name inside the XDG config dir.
const FileName = "config.yaml"

// Config holds CLI settings.
type Config struct {
	SupersetURL  string `koanf:"superset_url" yaml:"superset_url,omitempty" validate:"omitempty,url"`
	Username     string `koanf:"username" yaml:"username,omitempty"`
	Password     string `koanf:"password" yaml:"password,omitempty"`
	Schema       string `koanf:"schema" yaml:"schema" validate:"required"`
	DatabaseName string `koanf:"database_name" yaml:"database_name,omitempty"`

	Timeout           time.Duration `koanf:"timeout" yaml:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	BestEffortIdentity bool `koanf:"best_effort_identity" yaml:"best_effort_identity"`
	DefaultOwnerID     int  `koanf:"default_owner_id" yaml:"default_owner_id,omitempty" validate:"gte=0"`

	// WarehouseDSN points at the database behind Superset and lets dry runs read
	// table columns. Optional.
	WarehouseDSN string `koanf:"warehouse_dsn" yaml:"warehouse_dsn,omitempty"`

	LogLevel    string `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `koanf:"log_format" yaml:"log_format" validate:"oneof=text json"`
	Concurrency int    `koanf:"concurrency" yaml:"concurrency" validate:"gte=1,lte=32"`

	// Path is the file the config was read from, empty when none was found.
	Path string `koanf:"-" yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Schema:      "public",
		Timeout:     30 * time.Second,
		LogLevel:    "info",
		LogFormat:   "text",
		Concurrency: 1,
	}
}

// envKeys maps environment variables to config keys. Besides these, every
// SUPERSETCTL_<KEY> variable sets <key>.
var envKeys = map[string]string{
	"SUPERSET_URL":           "superset_url",
	"SUPERSET_USERNAME":      "username",
	"SUPERSET_PASSWORD":      "password",
	"SUPERSET_SCHEMA":        "schema",
	"SUPERSET_DATABASE_NAME": "database_name",
}

func envKey(name string) string {
	if k, ok := envKeys[name]; ok {
		return k
	}
	if rest, ok := strings.CutPrefix(name, "SUPERSETCTL_"); ok && name != PathEnvVar {
		return strings.ToLower(rest)
	}
	return ""
}

// DefaultPath returns $SUPERSETCTL_CONFIG, or config.yaml in the XDG config dir.
func DefaultPath() (string, error) {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p, nil
	}
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the configuration. An explicit path must exist; the default file is
// optional. The result is validated.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
		explicit = os.Getenv(PathEnvVar) != ""
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	found := true
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return Config{}, apperr.Wrap(apperr.Validation, "config file "+path, err)
		}
		found = false
	}
	if found {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, apperr.Wrap(apperr.Validation, "parse config file "+path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, apperr.Wrap(apperr.Validation, "decode config", err)
	}
	if found {
		c.Path = path
	}
	c.SupersetURL = strings.TrimRight(c.SupersetURL, "/")
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field formats.
func (c Config) Validate() error {
	return validate.Struct("config", c)
}

// RequireServer reports a Validation error unless the server URL and username are set.
func (c Config) RequireServer() error {
	var missing []string
	if c.SupersetURL == "" {
		missing = append(missing, "superset_url (or SUPERSET_URL)")
	}
	if c.Username == "" {
		missing = append(missing, "username (or SUPERSET_USERNAME)")
	}
	if len(missing) > 0 {
		return apperr.New(apperr.Validation, "missing "+strings.Join(missing, ", "))
	}
	return nil
}

// Save writes c as YAML to path, or to the default path when empty, with 0600
// permissions. Password and WarehouseDSN are left out.
func Save(c Config, path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	c.Password = ""
	c.WarehouseDSN = ""
	b, err := yamlv3.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
