package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rlabuda/cfgvault/internal/document"
	"github.com/rlabuda/cfgvault/internal/vault"
)

// Policy defaults.
const (
	DefaultKeepBackups      = 5
	DefaultRotationWarnDays = 30
)

// DefaultSensitiveKeys is the fixed set of field names eligible for
// secretization wherever they appear in a document. Service tokens added to
// the toolkit should register their key name here.
var DefaultSensitiveKeys = []string{
	"token",
	"access_token",
	"api_key",
	"CLOUDFLARE_API_TOKEN",
	"TUNNEL_TOKEN",
	"key",
	"pypi_token",
	"testpypi_token",
	"client_secret",
}

// Option configures a Store.
type Option func(*Store)

// WithSensitiveKeys replaces the default sensitive key set.
func WithSensitiveKeys(keys ...string) Option {
	return func(s *Store) {
		s.sensitiveKeys = keys
	}
}

// WithKeepBackups sets how many timestamped backups are retained per
// service. Zero or negative disables backup rotation entirely.
func WithKeepBackups(keep int) Option {
	return func(s *Store) {
		s.keepBackups = keep
	}
}

// WithRotationWarnDays sets the age in days past which resolved secrets
// produce an advisory rotation warning.
func WithRotationWarnDays(days int) Option {
	return func(s *Store) {
		s.rotationDays = days
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger for warnings on the read path. Defaults to
// slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is a secret-indirected configuration store. Each service owns one
// "<service>.json" document under the store directory; sensitive values
// live in the vault and only SEC:<account> references rest on disk.
//
// All operations are synchronous and blocking; concurrent writers from
// independent processes race and the later atomic rename wins.
type Store struct {
	dir           string
	vault         vault.Vault
	sensitiveKeys []string
	keepBackups   int
	rotationDays  int
	now           func() time.Time
	logger        *slog.Logger

	secretizer *Secretizer
}

// New creates a Store rooted at dir, backed by the given vault.
func New(dir string, v vault.Vault, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory cannot be empty")
	}
	if v == nil {
		return nil, fmt.Errorf("missing vault")
	}

	s := &Store{
		dir:           dir,
		vault:         v,
		sensitiveKeys: DefaultSensitiveKeys,
		keepBackups:   DefaultKeepBackups,
		rotationDays:  DefaultRotationWarnDays,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.secretizer = NewSecretizer(s.vault, s.sensitiveKeys, s.rotationDays, s.now, s.logger)
	return s, nil
}

// Path returns the document file path for a service.
func (s *Store) Path(service string) string {
	return filepath.Join(s.dir, service+".json")
}

// Load returns the resolved configuration document for a service.
//
// A missing file yields an empty document. An unparsable file yields a
// warning and an empty document; the corrupt file is left on disk for
// manual recovery. Documents still carrying legacy plaintext secrets are
// migrated (secretized and rewritten) exactly once before resolution.
// Only a failed migration write is an error; the read path never fails.
func (s *Store) Load(ctx context.Context, service string) (map[string]any, error) {
	path := s.Path(service)

	data, ok := s.readDocument(ctx, path)
	if !ok {
		return map[string]any{}, nil
	}

	if s.secretizer.NeedsMigration(data) {
		s.logger.InfoContext(ctx, "migrating plaintext secrets to vault", "service", service)
		if err := s.Save(ctx, service, data); err != nil {
			return nil, fmt.Errorf("migrating config for %s: %w", service, err)
		}
		// Re-read so the caller-visible tree carries references, not the
		// pre-migration plaintext.
		if data, ok = s.readDocument(ctx, path); !ok {
			return map[string]any{}, nil
		}
	}

	resolved, _ := s.secretizer.Desecretize(ctx, data, service).(map[string]any)
	if resolved == nil {
		resolved = map[string]any{}
	}
	return resolved, nil
}

// readDocument reads and parses a document file. Both absence and parse
// failure report !ok; parse failure additionally warns and leaves the file
// untouched.
func (s *Store) readDocument(ctx context.Context, path string) (map[string]any, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "could not read config file", "path", path, "error", err)
		}
		return nil, false
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.WarnContext(ctx, "could not parse config file, treating as empty", "path", path, "error", err)
		return nil, false
	}
	return data, true
}

// Save secretizes data and persists it as the service's document. The
// previous file version is snapshotted first; the write itself is atomic,
// so a failure leaves the old document intact.
func (s *Store) Save(ctx context.Context, service string, data map[string]any) error {
	processed, err := s.secretizer.Secretize(ctx, data, service)
	if err != nil {
		return fmt.Errorf("saving config for %s: %w", service, err)
	}

	path := s.Path(service)
	if _, err := snapshotBackup(path, s.keepBackups, s.now()); err != nil {
		// Best effort: a failed snapshot never blocks persisting the new
		// state, but it is worth knowing about.
		s.logger.WarnContext(ctx, "could not snapshot previous config version", "path", path, "error", err)
	}

	content, err := json.MarshalIndent(processed, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config for %s: %w", service, err)
	}
	content = append(content, '\n')

	if err := writeFileAtomic(path, content, 0o600); err != nil {
		return fmt.Errorf("saving config for %s: %w", service, err)
	}
	return nil
}

// Migrate forces the one-time plaintext migration cycle for a service and
// reports whether a migration write happened.
func (s *Store) Migrate(ctx context.Context, service string) (bool, error) {
	data, ok := s.readDocument(ctx, s.Path(service))
	if !ok || !s.secretizer.NeedsMigration(data) {
		return false, nil
	}
	if err := s.Save(ctx, service, data); err != nil {
		return false, err
	}
	return true, nil
}

// SecretAge returns the age in days of a secret's created_at timestamp,
// located by a dotted key path into the service's document. The document is
// read in its on-disk, still-secretized form; no secret is resolved. The
// second return is false when the path or its metadata is absent or
// unparsable.
func (s *Store) SecretAge(ctx context.Context, service, keyPath string) (int, bool) {
	data, ok := s.readDocument(ctx, s.Path(service))
	if !ok {
		return 0, false
	}

	container, key, ok := document.Container(data, keyPath)
	if !ok {
		return 0, false
	}
	createdAt, ok := document.CreatedAt(container[document.MetaKey(key)])
	if !ok {
		return 0, false
	}
	return int(s.now().Sub(createdAt).Hours() / 24), true
}

// SecretInfo describes one secretized field found in a service document.
type SecretInfo struct {
	// Path is the dotted field path within the document.
	Path string
	// Account is the vault account the reference points at.
	Account string
	// AgeDays is the age of the secret's created_at; valid only when
	// HasMetadata is true.
	AgeDays     int
	HasMetadata bool
}

// Secrets lists every secret reference in a service's on-disk document,
// without resolving any of them.
func (s *Store) Secrets(ctx context.Context, service string) []SecretInfo {
	data, ok := s.readDocument(ctx, s.Path(service))
	if !ok {
		return nil
	}

	var infos []SecretInfo
	s.collectSecrets(data, "", &infos)
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}

func (s *Store) collectSecrets(tree any, path string, infos *[]SecretInfo) {
	switch node := tree.(type) {
	case map[string]any:
		for k, v := range node {
			childPath := document.ChildPath(path, k)
			if ref, ok := document.ParseReference(v); ok {
				info := SecretInfo{Path: childPath, Account: ref.Account}
				if createdAt, ok := document.CreatedAt(node[document.MetaKey(k)]); ok {
					info.AgeDays = int(s.now().Sub(createdAt).Hours() / 24)
					info.HasMetadata = true
				}
				*infos = append(*infos, info)
				continue
			}
			s.collectSecrets(v, childPath, infos)
		}
	case []any:
		for i, item := range node {
			s.collectSecrets(item, document.IndexPath(path, i), infos)
		}
	}
}

// RotationWarnDays returns the configured rotation threshold.
func (s *Store) RotationWarnDays() int {
	return s.rotationDays
}

// Services lists every service with a document in the store directory,
// sorted. Backup snapshots are excluded.
func (s *Store) Services() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading store directory: %w", err)
	}

	var services []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if anyBackupPattern.MatchString(name) {
			continue
		}
		services = append(services, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(services)
	return services, nil
}

// Backups lists the retained backup file names for a service, newest
// first.
func (s *Store) Backups(service string) ([]string, error) {
	backups, err := listBackups(s.Path(service))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(backups))
	for i, b := range backups {
		names[i] = b.name
	}
	return names, nil
}
