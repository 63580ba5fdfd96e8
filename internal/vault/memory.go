package vault

import (
	"context"
	"sync"
)

// MemoryVault stores secrets in a process-local map. Secrets do not survive
// the process; intended for tests and for exercising store behavior without
// touching the OS credential store.
type MemoryVault struct {
	mu      sync.Mutex
	secrets map[string]string
}

// Compile-time check to ensure MemoryVault implements Vault
var _ Vault = (*MemoryVault)(nil)

// NewMemoryVault creates an empty MemoryVault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		secrets: make(map[string]string),
	}
}

// Store records the secret in memory.
func (m *MemoryVault) Store(ctx context.Context, account, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[account] = value
	return nil
}

// Retrieve returns the in-memory secret for the account, or ErrNotFound.
func (m *MemoryVault) Retrieve(ctx context.Context, account string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.secrets[account]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Len reports the number of stored secrets.
func (m *MemoryVault) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.secrets)
}

// NullVault discards writes and resolves nothing. It is the explicit
// degraded mode for platforms without a usable credential store: references
// written while it is active remain unresolved placeholders.
type NullVault struct{}

// Compile-time check to ensure NullVault implements Vault
var _ Vault = (*NullVault)(nil)

// NewNullVault creates a NullVault.
func NewNullVault() *NullVault {
	return &NullVault{}
}

// Store discards the secret.
func (n *NullVault) Store(ctx context.Context, account, value string) error {
	return ctx.Err()
}

// Retrieve reports every account as absent.
func (n *NullVault) Retrieve(ctx context.Context, account string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrNotFound
}
