package configstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestSnapshotBackupNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.json")
	writeDoc(t, path, `{"a":1}`)

	now := time.Date(2026, 8, 29, 13, 45, 7, 0, time.Local)

	created, err := snapshotBackup(path, 5, now)
	if err != nil {
		t.Fatalf("snapshotBackup: %v", err)
	}
	if want := filepath.Join(dir, "cf-20260829134507.json"); created != want {
		t.Errorf("backup path = %q, want %q", created, want)
	}

	content, err := os.ReadFile(created)
	if err != nil {
		t.Fatalf("ReadFile backup: %v", err)
	}
	if string(content) != `{"a":1}` {
		t.Errorf("backup content = %q", content)
	}
}

func TestSnapshotBackupSameSecondCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.json")
	writeDoc(t, path, "{}")

	now := time.Date(2026, 8, 29, 13, 45, 7, 0, time.Local)

	first, err := snapshotBackup(path, 5, now)
	if err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	second, err := snapshotBackup(path, 5, now)
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	third, err := snapshotBackup(path, 5, now)
	if err != nil {
		t.Fatalf("third snapshot: %v", err)
	}

	if filepath.Base(first) != "cf-20260829134507.json" {
		t.Errorf("first = %q", first)
	}
	if filepath.Base(second) != "cf-20260829134507-1.json" {
		t.Errorf("second = %q", second)
	}
	if filepath.Base(third) != "cf-20260829134507-2.json" {
		t.Errorf("third = %q", third)
	}
}

func TestSnapshotBackupMissingFile(t *testing.T) {
	created, err := snapshotBackup(filepath.Join(t.TempDir(), "absent.json"), 5, time.Now())
	if err != nil {
		t.Fatalf("snapshotBackup: %v", err)
	}
	if created != "" {
		t.Errorf("backup created for missing file: %q", created)
	}
}

func TestSnapshotBackupRetention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.json")
	writeDoc(t, path, "{}")

	base := time.Date(2026, 8, 29, 13, 0, 0, 0, time.Local)
	for i := range 8 {
		if _, err := snapshotBackup(path, 5, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}
	}

	backups, err := listBackups(path)
	if err != nil {
		t.Fatalf("listBackups: %v", err)
	}
	if len(backups) != 5 {
		t.Fatalf("retained %d backups, want 5", len(backups))
	}
	// Newest first; the three oldest (seconds 0..2) are gone.
	if backups[0].name != "cf-20260829130007.json" {
		t.Errorf("newest = %q", backups[0].name)
	}
	if backups[4].name != "cf-20260829130003.json" {
		t.Errorf("oldest retained = %q", backups[4].name)
	}
}

func TestSnapshotBackupRetentionOrdersCollisions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.json")
	writeDoc(t, path, "{}")

	now := time.Date(2026, 8, 29, 13, 0, 0, 0, time.Local)
	var created string
	for range 4 {
		var err error
		if created, err = snapshotBackup(path, 2, now); err != nil {
			t.Fatalf("snapshotBackup: %v", err)
		}
	}

	// The snapshot just taken is the newest; its own prune must not eat it,
	// even though earlier counters for this second were already pruned away.
	if _, err := os.Stat(created); err != nil {
		t.Errorf("last snapshot %q gone after prune: %v", created, err)
	}

	backups, err := listBackups(path)
	if err != nil {
		t.Fatalf("listBackups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("retained %d backups, want 2", len(backups))
	}
	if backups[0].name != "cf-20260829130000-3.json" || backups[1].name != "cf-20260829130000-2.json" {
		t.Errorf("retained %q, %q; want the two highest counters", backups[0].name, backups[1].name)
	}
}

func TestSnapshotBackupDisabled(t *testing.T) {
	for _, keep := range []int{0, -1} {
		dir := t.TempDir()
		path := filepath.Join(dir, "cf.json")
		writeDoc(t, path, "{}")

		// Pre-existing backups must survive a disabled rotation.
		writeDoc(t, filepath.Join(dir, "cf-20200101000000.json"), "{}")

		created, err := snapshotBackup(path, keep, time.Now())
		if err != nil {
			t.Fatalf("snapshotBackup(keep=%d): %v", keep, err)
		}
		if created != "" {
			t.Errorf("keep=%d created backup %q, want none", keep, created)
		}

		backups, err := listBackups(path)
		if err != nil {
			t.Fatalf("listBackups: %v", err)
		}
		if len(backups) != 1 {
			t.Errorf("keep=%d: %d backups remain, want the pre-existing 1", keep, len(backups))
		}
	}
}

func TestListBackupsIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.json")
	writeDoc(t, path, "{}")
	writeDoc(t, filepath.Join(dir, "cf-20260829134507.json"), "{}")
	writeDoc(t, filepath.Join(dir, "supabase-20260829134507.json"), "{}")
	writeDoc(t, filepath.Join(dir, "cf-notes.json"), "{}")
	writeDoc(t, filepath.Join(dir, "cf-20260829.json"), "{}")

	backups, err := listBackups(path)
	if err != nil {
		t.Fatalf("listBackups: %v", err)
	}
	if len(backups) != 1 || backups[0].name != "cf-20260829134507.json" {
		t.Errorf("backups = %+v, want only cf-20260829134507.json", backups)
	}
}
