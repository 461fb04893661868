// Package config handles harvester configuration.
//
// Values are layered: built-in defaults, then the YAML file at
// $XDG_CONFIG_HOME/citeharvest/config.yml (or an explicit path), then the
// SCOPUS_API_KEY environment variable. The retry policy is not configurable.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "citeharvest"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"

	// APIKeyEnv is the environment variable holding the Scopus API key.
	APIKeyEnv = "SCOPUS_API_KEY"
)

// ErrMissingAPIKey is returned by Validate when no API key is configured.
var ErrMissingAPIKey = errors.New("Scopus API key not configured")

// Config represents harvester configuration.
type Config struct {
	APIKey       string        `yaml:"api_key,omitempty" validate:"required"`
	BaseURL      string        `yaml:"base_url,omitempty" validate:"required,url"`
	PageSize     int           `yaml:"page_size,omitempty" validate:"min=1,max=200"`
	MaxResults   int           `yaml:"max_results,omitempty" validate:"min=1"`
	RequestDelay time.Duration `yaml:"request_delay,omitempty" validate:"min=0s"`
	IDKey        string        `yaml:"id_key,omitempty" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:      "https://api.elsevier.com",
		PageSize:     25,
		MaxResults:   5000,
		RequestDelay: time.Second,
		IDKey:        "scopus_id",
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/citeharvest/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// LoadDotEnv loads a .env file from the working directory if present.
// Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads configuration from path, or from Path() when path is empty.
// A missing file is not an error: defaults apply. The API key from the
// environment overrides the file. Load does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = Path()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.APIKey = key
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration and fails fast on the first problem.
// A missing API key yields an error wrapping ErrMissingAPIKey.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	missingKey := false
	for _, fe := range verrs {
		if fe.Field() == "APIKey" {
			missingKey = true
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", yamlName(fe.Field()), fe.ActualTag(), fe.Value()))
	}
	if missingKey {
		return fmt.Errorf("%w: set %s or api_key in %s", ErrMissingAPIKey, APIKeyEnv, Path())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// yamlName maps a struct field name to its config key.
func yamlName(field string) string {
	switch field {
	case "BaseURL":
		return "base_url"
	case "PageSize":
		return "page_size"
	case "MaxResults":
		return "max_results"
	case "RequestDelay":
		return "request_delay"
	case "IDKey":
		return "id_key"
	default:
		return field
	}
}

// MaskedAPIKey returns the API key with all but the last four characters hidden.
func (c *Config) MaskedAPIKey() string {
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
}
