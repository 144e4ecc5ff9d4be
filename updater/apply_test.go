package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

// fakeDownloader serves fixed bytes per URL.
type fakeDownloader struct {
	files map[string][]byte
}

func (f *fakeDownloader) Download(_ context.Context, url string, w io.Writer) error {
	body, ok := f.files[url]
	if !ok {
		return fmt.Errorf("no such url: %s", url)
	}
	_, err := w.Write(body)
	return err
}

// staleDecision builds an update-available decision for a real file in
// dir whose replacement carries newContent.
func staleDecision(t *testing.T, dir, oldName, newName, oldContent, newContent string) (Decision, *fakeDownloader) {
	t.Helper()
	path := writeMod(t, dir, oldName, oldContent)

	tmp := filepath.Join(t.TempDir(), "digest-probe")
	if err := os.WriteFile(tmp, []byte(newContent), 0644); err != nil {
		t.Fatalf("Failed to write probe file: %v", err)
	}
	newHash := hashOf(t, tmp)

	candidate := makeVersion("v2", "proj", "2.0.0", newName, newHash)
	d := Decision{
		File:      ModFile{Path: path, SHA512: hashOf(t, path)},
		Status:    StatusUpdateAvailable,
		Candidate: &candidate,
	}
	dl := &fakeDownloader{files: map[string][]byte{
		"https://cdn.example/" + newName: []byte(newContent),
	}}
	return d, dl
}

func TestApplyReplacesFile(t *testing.T) {
	dir := t.TempDir()
	d, dl := staleDecision(t, dir, "mod-1.0.jar", "mod-2.0.jar", "old content", "new content")

	applied, err := Apply(context.Background(), dl, d, ApplyOptions{Backup: true}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("Apply() returned error: %v", err)
	}

	newBytes, err := os.ReadFile(filepath.Join(dir, "mod-2.0.jar"))
	if err != nil {
		t.Fatalf("Replacement file missing: %v", err)
	}
	if string(newBytes) != "new content" {
		t.Errorf("Replacement content = %q, want %q", newBytes, "new content")
	}

	if _, err := os.Stat(filepath.Join(dir, "mod-1.0.jar")); !os.IsNotExist(err) {
		t.Error("Old file should be removed after a renamed update")
	}

	// Exactly one backup, byte-identical to the original.
	entries, err := os.ReadDir(filepath.Join(dir, backupDirName))
	if err != nil {
		t.Fatalf("Backup dir missing: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Backup dir has %d entries, want 1", len(entries))
	}
	backupBytes, err := os.ReadFile(applied.BackupPath)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if string(backupBytes) != "old content" {
		t.Errorf("Backup content = %q, want %q", backupBytes, "old content")
	}

	// No temp files left behind.
	rest, _ := os.ReadDir(dir)
	for _, e := range rest {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Leftover temp file: %s", e.Name())
		}
	}
}

func TestApplyWithoutBackup(t *testing.T) {
	dir := t.TempDir()
	d, dl := staleDecision(t, dir, "mod-1.0.jar", "mod-2.0.jar", "old content", "new content")

	applied, err := Apply(context.Background(), dl, d, ApplyOptions{Backup: false}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("Apply() returned error: %v", err)
	}
	if applied.BackupPath != "" {
		t.Errorf("BackupPath = %q, want empty", applied.BackupPath)
	}
	if _, err := os.Stat(filepath.Join(dir, backupDirName)); !os.IsNotExist(err) {
		t.Error("Backup dir should not be created when backups are disabled")
	}
}

func TestApplyIntegrityMismatch(t *testing.T) {
	dir := t.TempDir()
	d, dl := staleDecision(t, dir, "mod-1.0.jar", "mod-2.0.jar", "old content", "new content")

	// Corrupt the download by a single byte.
	url := "https://cdn.example/mod-2.0.jar"
	body := dl.files[url]
	body[0] ^= 0x01
	dl.files[url] = body

	_, err := Apply(context.Background(), dl, d, ApplyOptions{Backup: false}, zap.NewNop().Sugar())
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Apply() error = %v, want IntegrityError", err)
	}

	// Original is byte-identical to before the operation.
	orig, readErr := os.ReadFile(filepath.Join(dir, "mod-1.0.jar"))
	if readErr != nil {
		t.Fatalf("Original file missing after failed update: %v", readErr)
	}
	if string(orig) != "old content" {
		t.Errorf("Original content = %q, want %q", orig, "old content")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "mod-2.0.jar")); !os.IsNotExist(statErr) {
		t.Error("No replacement file should exist after an integrity failure")
	}
}

func TestApplyDownloadFailureLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	d, _ := staleDecision(t, dir, "mod-1.0.jar", "mod-2.0.jar", "old content", "new content")
	dl := &fakeDownloader{files: map[string][]byte{}} // every download fails

	if _, err := Apply(context.Background(), dl, d, ApplyOptions{Backup: false}, zap.NewNop().Sugar()); err == nil {
		t.Fatal("Apply() should fail when the download fails")
	}

	orig, err := os.ReadFile(filepath.Join(dir, "mod-1.0.jar"))
	if err != nil {
		t.Fatalf("Original file missing after failed download: %v", err)
	}
	if string(orig) != "old content" {
		t.Errorf("Original content = %q, want %q", orig, "old content")
	}
}

func TestApplySameFileName(t *testing.T) {
	dir := t.TempDir()
	d, dl := staleDecision(t, dir, "mod.jar", "mod.jar", "old content", "new content")

	if _, err := Apply(context.Background(), dl, d, ApplyOptions{Backup: false}, zap.NewNop().Sugar()); err != nil {
		t.Fatalf("Apply() returned error: %v", err)
	}

	// The swap replaced the file in place: same name, new content.
	got, err := os.ReadFile(filepath.Join(dir, "mod.jar"))
	if err != nil {
		t.Fatalf("Target file missing: %v", err)
	}
	if string(got) != "new content" {
		t.Errorf("Target content = %q, want %q", got, "new content")
	}
}

func TestApplyRejectsNonUpdateDecision(t *testing.T) {
	d := Decision{File: ModFile{Path: "/tmp/whatever.jar"}, Status: StatusUpToDate}
	if _, err := Apply(context.Background(), &fakeDownloader{}, d, ApplyOptions{}, zap.NewNop().Sugar()); err == nil {
		t.Error("Apply() should reject a decision that is not update-available")
	}
}
