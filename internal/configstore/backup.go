package configstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// backupTimestampLayout renders snapshot timestamps as yyyymmddhhmmss.
const backupTimestampLayout = "20060102150405"

// backupName builds "<base>-<ts><ext>", or "<base>-<ts>-<n><ext>" for
// same-second collisions.
func backupName(path, ts string, n int) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".json"
	}
	base := strings.TrimSuffix(filepath.Base(path), ext)
	if n <= 0 {
		return filepath.Join(filepath.Dir(path), base+"-"+ts+ext)
	}
	return filepath.Join(filepath.Dir(path), base+"-"+ts+"-"+strconv.Itoa(n)+ext)
}

// backupPattern matches backup files for the given document path and
// captures (timestamp, collision counter).
func backupPattern(path string) *regexp.Regexp {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".json"
	}
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `-(\d{14})(?:-(\d+))?` + regexp.QuoteMeta(ext) + `$`)
}

// anyBackupPattern matches backup files regardless of base, used to tell
// service documents apart from their snapshots.
var anyBackupPattern = regexp.MustCompile(`-\d{14}(?:-\d+)?\.json$`)

// backupEntry orders retained backups by (timestamp, counter) descending.
type backupEntry struct {
	ts   string
	n    int
	name string
}

// listBackups returns all backups for path, newest first.
func listBackups(path string) ([]backupEntry, error) {
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	pattern := backupPattern(path)
	var backups []backupEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n := 0
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2])
		}
		backups = append(backups, backupEntry{ts: m[1], n: n, name: entry.Name()})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].ts != backups[j].ts {
			return backups[i].ts > backups[j].ts
		}
		return backups[i].n > backups[j].n
	})
	return backups, nil
}

// snapshotBackup copies path to a timestamped sibling and prunes older
// snapshots beyond the keep most recent. Returns the created backup path,
// or "" when path does not exist.
//
// keep <= 0 disables rotation entirely: no snapshot is taken and none are
// removed.
func snapshotBackup(path string, keep int, now time.Time) (string, error) {
	if keep <= 0 {
		return "", nil
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	ts := now.Format(backupTimestampLayout)
	existing, err := listBackups(path)
	if err != nil {
		return "", err
	}
	// Counters within one second only ever grow, even across pruned
	// snapshots; listBackups is sorted newest first, so the first entry
	// sharing the timestamp carries the highest counter so far.
	n := 0
	for _, b := range existing {
		if b.ts == ts {
			n = b.n + 1
			break
		}
	}
	target := backupName(path, ts, n)

	if err := os.WriteFile(target, content, 0o600); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", target, err)
	}

	if err := pruneBackups(path, keep); err != nil {
		return "", err
	}
	return target, nil
}

// pruneBackups deletes all backups for path beyond the keep most recent.
func pruneBackups(path string, keep int) error {
	backups, err := listBackups(path)
	if err != nil {
		return err
	}
	if len(backups) <= keep {
		return nil
	}

	dir := filepath.Dir(path)
	for _, stale := range backups[keep:] {
		if err := os.Remove(filepath.Join(dir, stale.name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("pruning backup %s: %w", stale.name, err)
		}
	}
	return nil
}
