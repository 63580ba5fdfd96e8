package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rlabuda/cfgvault/internal/document"
	"github.com/rlabuda/cfgvault/internal/vault"
)

// Secretizer moves sensitive values between a document tree and the vault.
type Secretizer struct {
	vault        vault.Vault
	sensitive    map[string]struct{}
	rotationDays int
	now          func() time.Time
	logger       *slog.Logger
}

// NewSecretizer creates a Secretizer over the given vault. The sensitive
// key set decides which field names are eligible for secretization at any
// nesting depth.
func NewSecretizer(v vault.Vault, sensitiveKeys []string, rotationDays int, now func() time.Time, logger *slog.Logger) *Secretizer {
	sensitive := make(map[string]struct{}, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		sensitive[k] = struct{}{}
	}
	return &Secretizer{
		vault:        v,
		sensitive:    sensitive,
		rotationDays: rotationDays,
		now:          now,
		logger:       logger,
	}
}

func (s *Secretizer) isSensitive(key string) bool {
	_, ok := s.sensitive[key]
	return ok
}

// isSidecar reports whether key is the metadata sidecar of a sensitive
// field present in node. Sidecars of non-sensitive fields, and orphan
// sidecars whose field is gone, are ordinary data in every walk.
func (s *Secretizer) isSidecar(node map[string]any, key string) bool {
	base, ok := document.MetaBase(key)
	if !ok || !s.isSensitive(base) {
		return false
	}
	_, present := node[base]
	return present
}

// Secretize walks tree and moves every plain string under a sensitive field
// name into the vault, replacing it with a reference and upserting its
// metadata sidecar. Fields already holding references are left alone.
//
// A failed vault write aborts the walk: persisting a reference whose
// backing secret was never stored would silently lose the secret.
func (s *Secretizer) Secretize(ctx context.Context, tree any, service string) (any, error) {
	return s.secretize(ctx, tree, service, "")
}

func (s *Secretizer) secretize(ctx context.Context, tree any, service, path string) (any, error) {
	switch node := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			value, isPlain := v.(string)
			_, isRef := document.ParseReference(v)

			switch {
			case s.isSensitive(k) && isPlain && !isRef:
				account := service + "." + document.ChildPath(path, k)
				if err := s.vault.Store(ctx, account, value); err != nil {
					return nil, fmt.Errorf("secretizing %s: %w", account, err)
				}
				out[k] = document.NewReference(account).String()
				out[document.MetaKey(k)] = document.Metadata(node[document.MetaKey(k)], s.now())
			case s.isSidecar(node, k):
				// The sidecar belongs to its field: carried verbatim unless
				// the field is being secretized in this pass, in which case
				// the upsert above owns it (regardless of which key comes up
				// first in map iteration order).
				base, _ := document.MetaBase(k)
				if !s.willSecretize(node, base) {
					out[k] = v
				}
			default:
				child, err := s.secretize(ctx, v, service, document.ChildPath(path, k))
				if err != nil {
					return nil, err
				}
				out[k] = child
			}
		}
		return out, nil

	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			child, err := s.secretize(ctx, item, service, document.IndexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil

	default:
		return tree, nil
	}
}

// willSecretize reports whether the named field of node is a secretization
// target in the current pass, meaning its sidecar is owned by the upsert.
func (s *Secretizer) willSecretize(node map[string]any, field string) bool {
	v, ok := node[field].(string)
	if !ok {
		return false
	}
	_, isRef := document.ParseReference(v)
	return !isRef
}

// Desecretize walks tree and resolves every reference back into its secret
// value. References whose account is missing from the vault are left in
// place unresolved; availability wins over completeness on the read path.
// Secrets older than the rotation threshold produce an advisory warning.
func (s *Secretizer) Desecretize(ctx context.Context, tree any, service string) any {
	switch node := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			ref, isRef := document.ParseReference(v)
			if !isRef {
				out[k] = s.Desecretize(ctx, v, service)
				continue
			}

			secret, err := s.vault.Retrieve(ctx, ref.Account)
			if err != nil {
				out[k] = v
				continue
			}
			out[k] = secret
			s.warnIfStale(ctx, service, k, node[document.MetaKey(k)])
		}
		return out

	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = s.Desecretize(ctx, item, service)
		}
		return out

	default:
		return tree
	}
}

// warnIfStale emits a rotation warning when the field's created_at is
// strictly older than the rotation threshold. Advisory only.
func (s *Secretizer) warnIfStale(ctx context.Context, service, field string, meta any) {
	createdAt, ok := document.CreatedAt(meta)
	if !ok {
		return
	}
	ageDays := int(s.now().Sub(createdAt).Hours() / 24)
	if ageDays > s.rotationDays {
		s.logger.WarnContext(ctx, "secret is due for rotation",
			"service", service,
			"field", field,
			"age_days", ageDays,
			"threshold_days", s.rotationDays)
	}
}

// NeedsMigration reports whether any sensitive field anywhere in tree still
// holds a plain string instead of a reference. Metadata sidecars are never
// scanned: Secretize carries them verbatim, so flagging their contents
// would make migration loop without ever converging.
func (s *Secretizer) NeedsMigration(tree any) bool {
	switch node := tree.(type) {
	case map[string]any:
		for k, v := range node {
			if s.isSidecar(node, k) {
				continue
			}
			if s.isSensitive(k) {
				if _, isPlain := v.(string); isPlain {
					if _, isRef := document.ParseReference(v); !isRef {
						return true
					}
				}
			}
			if s.NeedsMigration(v) {
				return true
			}
		}
	case []any:
		for _, item := range node {
			if s.NeedsMigration(item) {
				return true
			}
		}
	}
	return false
}
