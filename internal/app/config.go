package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/rlabuda/cfgvault/internal/configstore"
	"github.com/rlabuda/cfgvault/internal/vault"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// VaultBackend represents the different secret storage backends supported.
type VaultBackend string

const (
	VaultBackendKeyring VaultBackend = "keyring"
	VaultBackendMemory  VaultBackend = "memory"
	VaultBackendNone    VaultBackend = "none"
)

// Default configuration values
const (
	DefaultConfigLogFormat        = LogFormatText
	DefaultConfigVaultBackend     = VaultBackendKeyring
	DefaultConfigVaultNamespace   = "cfgvault"
	DefaultConfigKeepBackups      = configstore.DefaultKeepBackups
	DefaultConfigRotationWarnDays = configstore.DefaultRotationWarnDays
)

// StoreConfig holds configuration for the document store.
type StoreConfig struct {
	// Dir is the directory holding "<service>.json" documents and their
	// backups.
	Dir string `json:"dir" validate:"required"`

	// KeepBackups is the number of timestamped backups retained per
	// service. Negative disables backup rotation.
	KeepBackups int `json:"keep_backups"`

	// RotationWarnDays is the secret age past which loads emit an advisory
	// rotation warning.
	RotationWarnDays int `json:"rotation_warn_days" validate:"min=1"`

	// SensitiveKeys are the field names eligible for secretization.
	SensitiveKeys []string `json:"sensitive_keys" validate:"required,min=1,dive,required"`
}

// VaultConfig represents the configuration for the secret vault backend.
type VaultConfig struct {
	Backend VaultBackend `json:"backend" validate:"required,oneof=keyring memory none"`

	// Namespace scopes all vault accounts for this toolkit. Unrelated
	// tools cannot read secrets stored under it; services within the
	// toolkit share it.
	Namespace string `json:"namespace" validate:"required"`
}

// NewVault creates a Vault from the vault configuration.
func (v *VaultConfig) NewVault() (vault.Vault, error) {
	switch v.Backend {
	case VaultBackendKeyring:
		return vault.NewKeyringVault(v.Namespace)
	case VaultBackendMemory:
		return vault.NewMemoryVault(), nil
	case VaultBackendNone:
		return vault.NewNullVault(), nil
	default:
		return nil, fmt.Errorf("unsupported vault backend: %s", v.Backend)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level  `json:"log_level"`
	LogFormat LogFormat   `json:"log_format" validate:"oneof=text json"`
	Store     StoreConfig `json:"store"`
	Vault     VaultConfig `json:"vault"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Store.Dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("store.dir required (auto-detect failed: %w)", err)
		}
		c.Store.Dir = filepath.Join(configDir, "cfgvault")
	}
	if c.Store.KeepBackups == 0 {
		c.Store.KeepBackups = DefaultConfigKeepBackups
	}
	if c.Store.RotationWarnDays == 0 {
		c.Store.RotationWarnDays = DefaultConfigRotationWarnDays
	}
	if len(c.Store.SensitiveKeys) == 0 {
		c.Store.SensitiveKeys = configstore.DefaultSensitiveKeys
	}
	if c.Vault.Backend == "" {
		c.Vault.Backend = DefaultConfigVaultBackend
	}
	if c.Vault.Namespace == "" {
		c.Vault.Namespace = DefaultConfigVaultNamespace
	}
	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// NewStore creates the configured Store with its vault backend.
func (c *Config) NewStore() (*configstore.Store, error) {
	v, err := c.Vault.NewVault()
	if err != nil {
		return nil, fmt.Errorf("failed to create vault: %w", err)
	}

	keep := c.Store.KeepBackups
	if keep < 0 {
		keep = 0
	}

	return configstore.New(c.Store.Dir, v,
		configstore.WithSensitiveKeys(c.Store.SensitiveKeys...),
		configstore.WithKeepBackups(keep),
		configstore.WithRotationWarnDays(c.Store.RotationWarnDays),
	)
}
