// Package configstore persists per-service configuration documents as JSON
// files with secret indirection.
//
// On save, values under sensitive field names are moved into a vault and
// replaced with SEC:<account> references before anything touches disk; the
// previous file version is snapshotted to a timestamped backup and the new
// content is written atomically. On load, references are resolved back into
// values and documents still carrying legacy plaintext secrets are migrated
// exactly once.
package configstore
