// Package config provides YAML configuration parsing for projecthub.
//
// This package enables running projecthub as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 8080
//	sweep_interval: 60s
//	probe_timeout: 5s
//	merge_policy: last_write_wins
//
//	storage:
//	  driver: sqlite
//	  path: ${PROJECTHUB_DATA:-./projecthub.db}
//
//	projects:
//	  - name: Billing
//	    local_url: http://localhost:3000
//	    cloud_url: https://billing.example.com
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/projecthub/internal/backend"
	"github.com/jpalmerr/projecthub/internal/logging"
	"github.com/jpalmerr/projecthub/internal/monitor"
	"github.com/jpalmerr/projecthub/internal/store"
)

const (
	defaultPort          = 8080
	defaultSweepInterval = 60 * time.Second
	defaultProbeTimeout  = 5 * time.Second
	defaultDriver        = backend.DriverFile
	defaultDataDir       = ".projecthub"

	// minSweepInterval prevents accidental DoS of endpoints with overly
	// aggressive sweeping.
	minSweepInterval = 1 * time.Second
)

// Config is the root configuration structure for projecthub.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Port is the HTTP API port. Defaults to 8080.
	Port int `yaml:"port" json:"port"`

	// SweepInterval is the time between background sweeps. Defaults to 60s.
	SweepInterval Duration `yaml:"sweep_interval" json:"sweep_interval"`

	// ProbeTimeout bounds each probe. Defaults to 5s.
	ProbeTimeout Duration `yaml:"probe_timeout" json:"probe_timeout"`

	// StrictStatus treats HTTP 4xx/5xx responses as offline.
	StrictStatus bool `yaml:"strict_status" json:"strict_status"`

	// MergePolicy is "last_write_wins" (default) or "reject_stale".
	MergePolicy string `yaml:"merge_policy" json:"merge_policy"`

	// LogLevel is debug, info, warn or error. Defaults to info.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is text or json. Defaults to text.
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Storage selects where projects are persisted.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Projects are registered on startup unless a project with the same
	// name already exists.
	Projects []ProjectConfig `yaml:"projects" json:"projects"`
}

// StorageConfig selects and configures the persistence backend.
//
// String values support environment variable substitution: ${VAR} or
// ${VAR:-default}.
type StorageConfig struct {
	// Driver is memory, file, sqlite, postgres or redis. Defaults to file.
	Driver string `yaml:"driver" json:"driver"`

	// Path is the data directory (file) or database file (sqlite).
	Path string `yaml:"path" json:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn" json:"dsn"`

	// Addr is the Redis host:port.
	Addr string `yaml:"addr" json:"addr"`

	// Password is the Redis password.
	Password string `yaml:"password" json:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db" json:"db"`

	// Key is the collection key. Defaults to "projects".
	Key string `yaml:"key" json:"key"`
}

// ProjectConfig is a project registered on startup.
type ProjectConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`

	// LocalURL and CloudURL support environment variable substitution.
	// At least one is required.
	LocalURL string `yaml:"local_url" json:"local_url"`
	CloudURL string `yaml:"cloud_url" json:"cloud_url"`
}

// Draft converts the entry into a store draft.
func (p ProjectConfig) Draft() store.Draft {
	return store.Draft{
		Name:        p.Name,
		Description: p.Description,
		LocalURL:    p.LocalURL,
		CloudURL:    p.CloudURL,
	}
}

// Validate implements validation.Validatable.
func (p ProjectConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.LocalURL,
			validation.Required.When(p.CloudURL == "").Error("local_url or cloud_url is required"),
			validation.By(httpURL),
		),
		validation.Field(&p.CloudURL,
			validation.Required.When(p.LocalURL == "").Error("local_url or cloud_url is required"),
			validation.By(httpURL),
		),
	)
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
//
// A .env file in the same directory, if present, is loaded into the
// environment first; variables already set are not overridden.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// loadDotEnv loads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in storage settings and project URLs.
// Defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = Duration(defaultSweepInterval)
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = Duration(defaultProbeTimeout)
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultDriver
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case backend.DriverFile:
			c.Storage.Path = defaultDataDir
		case backend.DriverSQLite:
			c.Storage.Path = filepath.Join(defaultDataDir, "projecthub.db")
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = store.DefaultKey
	}
}

// expandEnv substitutes environment variables in every string that may
// carry secrets or deployment-specific addresses.
func (c *Config) expandEnv() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"storage.path", &c.Storage.Path},
		{"storage.dsn", &c.Storage.DSN},
		{"storage.addr", &c.Storage.Addr},
		{"storage.password", &c.Storage.Password},
	}
	for i := range c.Projects {
		p := &c.Projects[i]
		fields = append(fields,
			struct {
				name string
				ptr  *string
			}{fmt.Sprintf("projects[%d].local_url", i), &p.LocalURL},
			struct {
				name string
				ptr  *string
			}{fmt.Sprintf("projects[%d].cloud_url", i), &p.CloudURL},
		)
	}

	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = strings.TrimSpace(expanded)
	}
	return nil
}

// Validate checks every field. It is called by [Parse]; call it directly
// after editing a Config by hand.
func (c *Config) Validate() error {
	driver := c.Storage.Driver
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.SweepInterval, validation.By(minDuration(minSweepInterval))),
		validation.Field(&c.ProbeTimeout, validation.By(minDuration(100*time.Millisecond))),
		validation.Field(&c.MergePolicy, validation.By(func(v interface{}) error {
			_, err := monitor.ParseMergePolicy(v.(string))
			return err
		})),
		validation.Field(&c.LogLevel, validation.By(func(v interface{}) error {
			return logging.Validate(v.(string), "")
		})),
		validation.Field(&c.LogFormat, validation.In(toAny(logging.Formats)...).Error("must be text or json")),
		validation.Field(&c.Storage, validation.By(func(v interface{}) error {
			sc := v.(StorageConfig)
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.Driver, validation.Required, validation.In(toAny(backend.Drivers)...)),
				validation.Field(&sc.Path, validation.Required.When(driver == backend.DriverFile || driver == backend.DriverSQLite)),
				validation.Field(&sc.DSN, validation.Required.When(driver == backend.DriverPostgres)),
				validation.Field(&sc.Addr,
					validation.Required.When(driver == backend.DriverRedis),
					validation.By(hostPort),
				),
				validation.Field(&sc.DB, validation.Min(0)),
				validation.Field(&sc.Key,
					validation.Required,
					validation.When(driver == backend.DriverFile,
						validation.Match(backend.FileKeyPattern).Error("must contain only letters, digits, '.', '_' or '-'"),
					),
				),
			)
		})),
		validation.Field(&c.Projects, validation.By(uniqueNames)),
	)
}

// Drafts returns the configured seed projects as store drafts.
func (c *Config) Drafts() []store.Draft {
	drafts := make([]store.Draft, len(c.Projects))
	for i, p := range c.Projects {
		drafts[i] = p.Draft()
	}
	return drafts
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func minDuration(limit time.Duration) validation.RuleFunc {
	return func(value interface{}) error {
		d, _ := value.(Duration)
		if d.Duration() < limit {
			return validation.NewError("validation_duration_too_small",
				fmt.Sprintf("must be at least %s", limit))
		}
		return nil
	}
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "scheme must be http or https")
	}
	return nil
}

func hostPort(value interface{}) error {
	addr, _ := value.(string)
	if addr == "" {
		return nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}
	return nil
}

func uniqueNames(value interface{}) error {
	projects, _ := value.([]ProjectConfig)
	seen := make(map[string]bool, len(projects))
	for _, p := range projects {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			continue
		}
		if seen[key] {
			return validation.NewError("validation_duplicate_name",
				fmt.Sprintf("duplicate project name %q", p.Name))
		}
		seen[key] = true
	}
	return nil
}
