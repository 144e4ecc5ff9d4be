package updater

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// hashChunkSize bounds how much of a file is held in memory while hashing.
const hashChunkSize = 4096

// ModFile is one installed mod artifact, identified by its sha512 digest.
type ModFile struct {
	Path   string
	Size   int64
	SHA512 string
}

// Name returns the file's base name.
func (m ModFile) Name() string {
	return filepath.Base(m.Path)
}

// HashFile computes the hex-encoded sha512 digest of a file, streaming
// it in bounded chunks.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	hash := sha512.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hash, file, buf); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ScanFolder lists the mod jar files directly inside folder. Hashing is
// deferred to the resolver so a single unreadable file cannot abort the
// scan.
func ScanFolder(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read mod folder %s: %w", folder, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".jar" {
			continue
		}
		paths = append(paths, filepath.Join(folder, entry.Name()))
	}
	return paths, nil
}
