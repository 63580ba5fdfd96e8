// Package document provides helpers for the JSON-like value trees persisted
// by the configuration store: field paths, secret references, and metadata
// sidecars.
//
// A document is the value shape produced by encoding/json: map[string]any
// objects, []any arrays, and string/float64/bool/nil leaves. The package
// never interprets field values beyond reference detection; the store is
// schema-agnostic.
package document

import (
	"strconv"
	"strings"
	"time"
)

// metaSuffix is appended to a sensitive field name to form its metadata
// sidecar key.
const metaSuffix = "_meta"

// MetaKey returns the metadata sidecar key for a field.
func MetaKey(field string) string {
	return field + metaSuffix
}

// MetaBase returns the field name a sidecar key belongs to. The second
// return is false when key is not a sidecar key at all.
func MetaBase(key string) (string, bool) {
	return strings.CutSuffix(key, metaSuffix)
}

// ChildPath extends a dotted field path with an object key.
func ChildPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// IndexPath extends a dotted field path with an array index, rendered as
// "[i]".
func IndexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// Lookup navigates a document by a dotted key path ("providers.openrouter.token")
// and returns the value at the leaf. Intermediate segments must be objects;
// array indices are not addressable.
func Lookup(doc map[string]any, keyPath string) (any, bool) {
	container, key, ok := Container(doc, keyPath)
	if !ok {
		return nil, false
	}
	v, ok := container[key]
	return v, ok
}

// Container navigates to the object holding the leaf of a dotted key path
// and returns it together with the leaf key. The leaf itself need not
// exist.
func Container(doc map[string]any, keyPath string) (map[string]any, string, bool) {
	parts := strings.Split(keyPath, ".")
	container := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := container[part].(map[string]any)
		if !ok {
			return nil, "", false
		}
		container = next
	}
	return container, parts[len(parts)-1], true
}

// Set assigns a value at a dotted key path, creating intermediate objects
// as needed. It fails when an intermediate segment already holds a
// non-object value.
func Set(doc map[string]any, keyPath string, value any) bool {
	parts := strings.Split(keyPath, ".")
	container := doc
	for _, part := range parts[:len(parts)-1] {
		switch next := container[part].(type) {
		case map[string]any:
			container = next
		case nil:
			created := map[string]any{}
			container[part] = created
			container = created
		default:
			return false
		}
	}
	container[parts[len(parts)-1]] = value
	return true
}

// metadataLayouts are accepted created_at formats. The second covers
// sidecars written by the legacy toolkit, which stamped local time without
// a zone offset.
var metadataLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
}

// Metadata builds a sidecar value for a freshly secretized field,
// preserving created_at from a prior sidecar when one exists.
func Metadata(existing any, now time.Time) map[string]any {
	stamp := now.Format(time.RFC3339)
	createdAt := stamp
	if prior, ok := existing.(map[string]any); ok {
		if s, ok := prior["created_at"].(string); ok && s != "" {
			createdAt = s
		}
	}
	return map[string]any{
		"created_at":   createdAt,
		"last_used_at": stamp,
	}
}

// CreatedAt extracts and parses the created_at timestamp from a metadata
// sidecar value.
func CreatedAt(meta any) (time.Time, bool) {
	m, ok := meta.(map[string]any)
	if !ok {
		return time.Time{}, false
	}
	s, ok := m["created_at"].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range metadataLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
