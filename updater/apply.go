package updater

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// backupDirName is the per-folder location for pre-update copies.
const backupDirName = ".backups"

// IntegrityError reports a downloaded file whose digest does not match
// the version's declared hash. The original file is left untouched.
type IntegrityError struct {
	Path string
	Want string
	Got  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("downloaded file %s failed verification: want sha512 %s, got %s", e.Path, e.Want, e.Got)
}

// Downloader streams a remote file into a writer. Satisfied by
// *modrinth.Client.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) error
}

// ApplyOptions controls how a single update is carried out.
type ApplyOptions struct {
	Backup    bool
	BackupDir string // defaults to <folder>/.backups
}

// Applied records the side effects of one completed update.
type Applied struct {
	OldPath    string
	NewPath    string
	BackupPath string
}

// Apply carries out an update-available decision: backup (if enabled),
// verified download to a temporary file, then an atomic rename. Any
// failure before the rename leaves the original file intact.
func Apply(ctx context.Context, dl Downloader, d Decision, opts ApplyOptions, log *zap.SugaredLogger) (*Applied, error) {
	if d.Status != StatusUpdateAvailable || d.Candidate == nil {
		return nil, fmt.Errorf("nothing to apply for %s (status %s)", d.File.Name(), d.Status)
	}

	remote := d.Candidate.PrimaryFile()
	if remote == nil {
		return nil, fmt.Errorf("version %s has no downloadable file", d.Candidate.ID)
	}
	if remote.SHA512() == "" {
		return nil, fmt.Errorf("version %s declares no sha512 for %s", d.Candidate.ID, remote.Filename)
	}

	folder := filepath.Dir(d.File.Path)
	result := &Applied{OldPath: d.File.Path}

	if opts.Backup {
		backupPath, err := backupFile(d.File.Path, opts.BackupDir)
		if err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", d.File.Name(), err)
		}
		result.BackupPath = backupPath
		log.Infow("Backed up current version",
			zap.String("file", d.File.Name()),
			zap.String("backup", backupPath),
		)
	}

	// Download into the target folder so the final rename stays on one
	// filesystem.
	tmpPath := filepath.Join(folder, fmt.Sprintf(".modsync-%s.tmp", uuid.NewString()))
	if err := downloadTo(ctx, dl, remote.URL, tmpPath); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	gotHash, err := HashFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to verify download: %w", err)
	}
	if gotHash != remote.SHA512() {
		os.Remove(tmpPath)
		return nil, &IntegrityError{Path: tmpPath, Want: remote.SHA512(), Got: gotHash}
	}

	newPath := filepath.Join(folder, remote.Filename)
	if err := os.Rename(tmpPath, newPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to move verified download into place: %w", err)
	}
	result.NewPath = newPath

	// The new release may carry a different file name; clear out the
	// replaced file only after the new one is in place.
	if newPath != d.File.Path {
		if err := os.Remove(d.File.Path); err != nil && !os.IsNotExist(err) {
			log.Warnw("Failed to remove replaced mod file",
				zap.String("file", d.File.Path),
				zap.Error(err),
			)
		}
	}

	log.Infow("Updated mod",
		zap.String("from", d.File.Name()),
		zap.String("to", remote.Filename),
		zap.String("version", d.Candidate.VersionNumber),
	)
	return result, nil
}

// backupFile copies src into the backup directory under a
// collision-free, timestamped name and returns the backup path.
func backupFile(src, backupDir string) (string, error) {
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(src), backupDirName)
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), filepath.Base(src))
	dst := filepath.Join(backupDir, name)
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(backupDir, fmt.Sprintf("%s-%s", uuid.NewString()[:8], name))
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func downloadTo(ctx context.Context, dl Downloader, url, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if err := dl.Download(ctx, url, out); err != nil {
		out.Close()
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish writing download: %w", err)
	}
	return nil
}
