package vault

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Retrieve when no secret exists for an account.
var ErrNotFound = errors.New("secret not found")

// Vault stores and retrieves secrets by opaque account name.
//
// Values are never cached across calls; every Retrieve reaches the backing
// store.
type Vault interface {
	// Store persists a secret under the given account, overwriting any
	// existing value.
	Store(ctx context.Context, account, value string) error

	// Retrieve returns the secret for the given account, or ErrNotFound.
	Retrieve(ctx context.Context, account string) (string, error)
}
