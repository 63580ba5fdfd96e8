// Package vault provides best-effort secret storage adapters over the OS
// secure credential store.
//
// Three backends with different deployment tradeoffs:
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, Linux Secret Service)
//   - Memory: process-local map, for tests and deterministic VaultUnavailable
//     behavior
//   - Null: discards writes and resolves nothing, for platforms without a
//     usable credential store
//
// All backends are addressed by opaque account strings under one fixed
// application namespace. Callers must treat every interaction as
// best-effort: a missing secret is reported as ErrNotFound, never invented.
package vault
