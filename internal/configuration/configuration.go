package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"

	"github.com/goatplatform/edge-chat/internal/file"
)

const (
	// DefaultPath of the configuration file.
	DefaultPath = "~/.config/edgechat/config.json"
	// PathEnv overrides DefaultPath.
	PathEnv = "EDGECHAT_CONFIG"
)

func defaultConfig() *Config {
	return &Config{
		UserID:         "local",
		RequestTimeout: 120,
		Database: &Database{
			Driver: "sqlite",
			DSN:    "~/.config/edgechat/edgechat.db",
		},
		Logging: &Logging{
			Level:  "info",
			Format: "text",
		},
		Server: &Server{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:8080"},
		},
		Chat: &Chat{
			DefaultModel: "Dummy",
		},
		Backends: []*Backend{
			{Name: "Dummy", Kind: "dummy"},
		},
	}
}

// Config holds configuration for both edgechat processes.
type Config struct {
	// The user owning the chats.
	UserID string `json:"user_id"`
	// Seconds a single generation may take.
	RequestTimeout int `json:"request_timeout"`

	Database *Database  `json:"database"`
	Logging  *Logging   `json:"logging"`
	Server   *Server    `json:"server"`
	Chat     *Chat      `json:"chat"`
	Backends []*Backend `json:"backends"`
}

// Database holds configuration for the record store.
type Database struct {
	// One of "sqlite" or "postgres".
	Driver string `json:"driver"`
	// A file path for sqlite, a connection string for postgres.
	DSN string `json:"dsn"`
}

// Logging holds configuration for the process logger.
type Logging struct {
	// One of "debug", "info", "warn" or "error".
	Level string `json:"level"`
	// One of "text" or "json".
	Format string `json:"format"`
	// Logs go to stderr when empty.
	File string `json:"file"`
}

// Server holds configuration for edgechat serve.
type Server struct {
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// Chat holds configuration for edgechat chat.
type Chat struct {
	// The backend used when none is specified.
	DefaultModel string `json:"default_model"`
}

// Backend describes one model backend.
type Backend struct {
	// Name is the backend ID, recorded as the modelId of its replies.
	Name string `json:"name"`
	// One of "dummy", "local" or "remote".
	Kind string `json:"kind"`
	// For remote backends, one of "openai" or "anthropic".
	Provider string `json:"provider,omitempty"`
	APIHost  string `json:"api_host,omitempty"`
	// A literal key or "$NAME" to read it from the environment.
	APIKey      string  `json:"api_key,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	// For dummy backends, an artificial latency.
	DelayMs int `json:"delay_ms,omitempty"`
}

// Timeout of a single generation.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Validate the configuration.
func (c *Config) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.Errorf("request_timeout must be positive, got %d", c.RequestTimeout)
	}
	names := strset.New()
	for _, backend := range c.Backends {
		if backend.Name == "" {
			return errors.New("backend name cannot be empty")
		}
		if names.Has(backend.Name) {
			return errors.Errorf("duplicate backend name (%s)", backend.Name)
		}
		names.Add(backend.Name)
	}
	if !names.Has(c.Chat.DefaultModel) {
		return errors.Errorf("default model (%s) is not a configured backend", c.Chat.DefaultModel)
	}
	return nil
}

// Path returns the configuration path to use when none is given on the command line.
func Path() string {
	if path := os.Getenv(PathEnv); path != "" {
		return path
	}
	return DefaultPath
}

// Parse a configuration file, writing the defaults to it first if it does not exist.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}
	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	if err := mergo.Merge(config, defaultConfig()); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}

	if err := loadEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, errors.Wrap(err, "loading .env")
	}
	for _, backend := range config.Backends {
		backend.APIKey = resolveEnv(backend.APIKey)
	}
	if config.Database.Driver == "sqlite" {
		if config.Database.DSN, err = file.ExpandPath(config.Database.DSN); err != nil {
			return nil, errors.Wrap(err, "expanding database path")
		}
	}
	if config.Logging.File, err = file.ExpandPath(config.Logging.File); err != nil {
		return nil, errors.Wrap(err, "expanding log file path")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return config, nil
}

// loadEnv loads every .env file that exists. Variables already set are not overridden.
func loadEnv(paths ...string) error {
	for _, path := range paths {
		exists, err := file.Exists(path)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "loading %s", path)
		}
	}
	return nil
}

// resolveEnv reads values of the form "$NAME" from the environment.
func resolveEnv(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}
	return os.Getenv(strings.TrimPrefix(value, "$"))
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err = os.WriteFile(path, bytes, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	exists, err := file.Exists(path)
	if err != nil || exists {
		return err
	}
	if err := file.CreateParentDirectory(path); err != nil {
		return errors.Wrap(err, "creating folders")
	}
	if err := defaultConfig().save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
