package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Key derivation names accepted in KeyConfig.Derivation.
const (
	DerivationLegacy = "legacy"
	DerivationPBKDF2 = "pbkdf2"
)

// Config holds the cryptdb command line configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Key     KeyConfig     `yaml:"key"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig locates the database file.
type StoreConfig struct {
	Path     string `yaml:"path"`
	FileMode string `yaml:"file_mode"` // octal, e.g. "0600"
}

// KeyConfig selects how the passphrase becomes a cipher key.
type KeyConfig struct {
	Derivation string `yaml:"derivation"` // legacy, pbkdf2
	Salt       string `yaml:"salt"`
	Iterations int    `yaml:"iterations"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultPath returns ~/.cryptdb/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cryptdb", "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Path:     filepath.Join(home, ".cryptdb", "database.json"),
			FileMode: "0600",
		},
		Key: KeyConfig{
			Derivation: DerivationLegacy,
			Iterations: 600_000,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read config")
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config")
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config")
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CRYPTDB_PATH"); path != "" {
		c.Store.Path = path
	}
	if kdf := os.Getenv("CRYPTDB_KDF"); kdf != "" {
		c.Key.Derivation = kdf
	}
	if salt := os.Getenv("CRYPTDB_SALT"); salt != "" {
		c.Key.Salt = salt
	}
	if level := os.Getenv("CRYPTDB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Mode parses Store.FileMode.
func (c *Config) Mode() (os.FileMode, error) {
	if c.Store.FileMode == "" {
		return 0600, nil
	}
	m, err := strconv.ParseUint(c.Store.FileMode, 8, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid file mode %q", c.Store.FileMode)
	}
	return os.FileMode(m).Perm(), nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store path not configured (set store.path or CRYPTDB_PATH)")
	}
	if _, err := c.Mode(); err != nil {
		return err
	}

	switch c.Key.Derivation {
	case DerivationLegacy:
	case DerivationPBKDF2:
		if c.Key.Salt == "" {
			return errors.New("key.salt is required for pbkdf2 derivation")
		}
		if c.Key.Iterations < 1 {
			return errors.Errorf("key.iterations must be positive, got %d", c.Key.Iterations)
		}
	default:
		return errors.Errorf("invalid key derivation: %s (valid: %s, %s)",
			c.Key.Derivation, DerivationLegacy, DerivationPBKDF2)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}
