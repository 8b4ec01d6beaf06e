package kms

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ruteri/vault-wallet-custody/interfaces"
)

// Defaults match the transit mounts the wallet service is deployed with.
const (
	DefaultUsersPath       = "transit/users"
	DefaultManagersPath    = "transit/managers"
	DefaultKeyType         = "ed25519"
	DefaultTimeout         = 10 * time.Second
	DefaultListConcurrency = 8
)

// VaultConfig is built once at startup and passed to the gateway.
type VaultConfig struct {
	// BaseURL is the Vault address, without the /v1 suffix.
	BaseURL string

	// UsersPath is the transit namespace holding one key per wallet user.
	UsersPath string

	// ManagersPath is the transit namespace holding the manager key.
	ManagersPath string

	// ManagerKey is the fixed name of the privileged manager key.
	ManagerKey string

	// KeyType is sent when a key is created on first use.
	KeyType string

	// Timeout bounds every Vault request.
	Timeout time.Duration

	// ListConcurrency bounds the per-key reads issued by ListKeys.
	ListConcurrency int
}

// WithDefaults fills unset optional fields.
func (c VaultConfig) WithDefaults() VaultConfig {
	if c.UsersPath == "" {
		c.UsersPath = DefaultUsersPath
	}
	if c.ManagersPath == "" {
		c.ManagersPath = DefaultManagersPath
	}
	if c.KeyType == "" {
		c.KeyType = DefaultKeyType
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ListConcurrency <= 0 {
		c.ListConcurrency = DefaultListConcurrency
	}
	c.UsersPath = strings.Trim(c.UsersPath, "/")
	c.ManagersPath = strings.Trim(c.ManagersPath, "/")
	return c
}

// Validate reports missing required settings.
func (c VaultConfig) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("vault base URL is required"))
	}
	if c.ManagerKey == "" {
		errs = append(errs, errors.New("vault manager key is required"))
	}
	if _, err := c.ManagerHandle(); err != nil && c.ManagerKey != "" {
		errs = append(errs, fmt.Errorf("invalid manager key: %w", err))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("vault timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// ManagerHandle returns the handle of the manager key.
func (c VaultConfig) ManagerHandle() (interfaces.SigningKeyHandle, error) {
	return interfaces.NewSigningKeyHandle(c.ManagerKey, c.ManagersPath)
}
