package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
	"github.com/jbweber/molecule-proxmox/internal/vm"
)

const (
	// DefaultTimeout is the poll budget in seconds.
	DefaultTimeout = vm.DefaultTimeout

	// EnvPassword and EnvTokenSecret supply secrets that should not be
	// passed on the command line.
	EnvPassword    = "PROXMOX_API_PASSWORD"
	EnvTokenSecret = "PROXMOX_API_TOKEN_SECRET"
)

// Config holds the API connection and poll parameters.
type Config struct {
	APIHost        string `yaml:"api_host" validate:"required"`
	APIPort        int    `yaml:"api_port" validate:"min=1,max=65535"`
	APIUser        string `yaml:"api_user" validate:"required"`
	APIPassword    string `yaml:"api_password,omitempty" validate:"required_without=APITokenID"`
	APITokenID     string `yaml:"api_token_id,omitempty" validate:"required_with=APITokenSecret"`
	APITokenSecret string `yaml:"api_token_secret,omitempty" validate:"required_with=APITokenID"`
	ValidateCerts  bool   `yaml:"validate_certs"`
	VMID           int    `yaml:"vmid,omitempty" validate:"min=0"`
	Timeout        int    `yaml:"timeout" validate:"min=1"`
	Debug          bool   `yaml:"debug,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// LoadFromFile loads a configuration from a YAML file and normalizes it.
// Validation is left to the caller so flags and environment can still
// override file values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.Normalize()
	return &config, nil
}

// Normalize sanitizes user input and fills in defaults.
func (c *Config) Normalize() {
	c.APIHost = strings.TrimSpace(c.APIHost)
	c.APIUser = strings.TrimSpace(c.APIUser)
	c.APITokenID = strings.TrimSpace(c.APITokenID)

	if c.APIPort == 0 {
		c.APIPort = proxmox.DefaultPort
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// ApplyEnvironment overrides secrets with the non-empty values found in the
// environment. Call it after loading the file and before applying flags.
func (c *Config) ApplyEnvironment(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPassword); ok && v != "" {
		c.APIPassword = v
	}
	if v, ok := lookup(EnvTokenSecret); ok && v != "" {
		c.APITokenSecret = v
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for errors. All field errors are
// reported together.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		msgs = append(msgs, formatValidationMessage(e))
	}
	return errors.WithType(
		fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; ")),
		errors.NotValid,
	)
}

// formatValidationMessage creates human-readable error messages.
func formatValidationMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is not set", field, yamlName(e.Param()))
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, yamlName(e.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

// yamlName maps a Config struct field name to its YAML key.
func yamlName(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	return name
}

// ProxmoxOptions returns the API session options for this configuration.
func (c *Config) ProxmoxOptions() proxmox.Options {
	return proxmox.Options{
		Host:          c.APIHost,
		Port:          c.APIPort,
		User:          c.APIUser,
		Password:      c.APIPassword,
		TokenID:       c.APITokenID,
		TokenSecret:   c.APITokenSecret,
		ValidateCerts: c.ValidateCerts,
	}
}
