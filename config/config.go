package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ozzo/ozzo-validation/v3"
	"github.com/go-ozzo/ozzo-validation/v3/is"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type GradescopeConfig struct {
	BaseURL    string `json:"base_url" yaml:"base_url"`
	CookieFile string `json:"cookie_file" yaml:"cookie_file"`
}

func (c *GradescopeConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

const (
	minWorkerCount = 1
	minWaitSeconds = 1
)

type ValidatorConfig struct {
	WorkerCount int `json:"worker_count" yaml:"worker_count"`
	WaitSeconds int `json:"wait_seconds" yaml:"wait_seconds"`
	MaxRounds   int `json:"max_rounds" yaml:"max_rounds"`
}

func (c *ValidatorConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.WorkerCount, validation.Required, validation.Min(minWorkerCount)),
		validation.Field(&c.WaitSeconds, validation.Required, validation.Min(minWaitSeconds)),
		validation.Field(&c.MaxRounds, validation.Min(0)),
	)
}

type Config struct {
	LoggerConfig     zap.Config       `json:"logger" yaml:"logger"`
	GradescopeConfig GradescopeConfig `json:"gradescope" yaml:"gradescope"`
	ValidatorConfig  ValidatorConfig  `json:"validator" yaml:"validator"`
}

func (c *Config) Validate() error {
	if err := c.GradescopeConfig.Validate(); err != nil {
		return err
	}
	if err := c.ValidatorConfig.Validate(); err != nil {
		return err
	}
	return nil
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		LoggerConfig: zap.NewProductionConfig(),
		GradescopeConfig: GradescopeConfig{
			BaseURL:    "https://www.gradescope.com",
			CookieFile: "cookies.json",
		},
		ValidatorConfig: ValidatorConfig{
			WorkerCount: 8,
			WaitSeconds: 60,
		},
	}
}

// LoadFromFile overlays the file's contents onto c and validates the result.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown configuration file extension: %s", ext)
	}
	return c.Validate()
}

const defaultConfigFile = "config.json"

func (c *Config) LoadDefault() error {
	return c.LoadFromFile(defaultConfigFile)
}

// Credentials are read from the environment (optionally seeded from a .env
// file) so they never sit in a config file next to the cookie cache.
type Credentials struct {
	Email    string
	Password string
}

func LoadCredentials() (Credentials, error) {
	_ = godotenv.Load()

	creds := Credentials{
		Email:    os.Getenv("GRADESCOPE_EMAIL"),
		Password: os.Getenv("GRADESCOPE_PASSWORD"),
	}
	if creds.Email == "" || creds.Password == "" {
		return Credentials{}, errors.New("GRADESCOPE_EMAIL and GRADESCOPE_PASSWORD are not set")
	}
	return creds, nil
}
