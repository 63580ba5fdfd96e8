package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringVault stores secrets in the OS-native credential store.
// All accounts live under one fixed namespace so unrelated tools cannot
// read each other's secrets; accounts themselves prevent collisions within
// the namespace.
type KeyringVault struct {
	namespace string
}

// Compile-time check to ensure KeyringVault implements Vault
var _ Vault = (*KeyringVault)(nil)

// NewKeyringVault creates a KeyringVault scoped to the given namespace.
func NewKeyringVault(namespace string) (*KeyringVault, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &KeyringVault{
		namespace: namespace,
	}, nil
}

// Store persists the secret in the system keyring. On platforms without
// OS-backed secure storage the write is silently discarded.
func (k *KeyringVault) Store(ctx context.Context, account, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := keyring.Set(k.namespace, account, value)
	if errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storing secret for account %s: %w", account, err)
	}
	return nil
}

// Retrieve returns the secret from the system keyring. Unsupported
// platforms report every account as absent.
func (k *KeyringVault) Retrieve(ctx context.Context, account string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value, err := keyring.Get(k.namespace, account)
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("retrieving secret for account %s: %w", account, err)
	}
	return value, nil
}
