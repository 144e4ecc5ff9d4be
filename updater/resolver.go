package updater

import (
	"context"
	"fmt"
	"os"

	"modsync/config"
	"modsync/modrinth"

	"go.uber.org/zap"
)

// Status classifies the outcome of resolving one mod file.
type Status int

const (
	StatusUpToDate Status = iota
	StatusUpdateAvailable
	StatusUnknown
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "up-to-date"
	case StatusUpdateAvailable:
		return "update-available"
	case StatusUnknown:
		return "unknown"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Decision is the resolution for a single mod file. Exactly one is
// produced per scanned file; decisions carry no cross-file state.
type Decision struct {
	File      ModFile
	Status    Status
	Installed *modrinth.Version // nil when the hash is unknown to the registry
	Candidate *modrinth.Version // set when Status is StatusUpdateAvailable
	Err       error             // set when Status is StatusFailed
}

// Registry is the remote lookup surface the resolver needs. Satisfied
// by *modrinth.Client.
type Registry interface {
	VersionsByHash(ctx context.Context, hashes []string) (map[string]modrinth.Version, error)
	LatestVersions(ctx context.Context, hashes, loaders, gameVersions []string) (map[string]modrinth.Version, error)
}

// Resolver turns a folder of mod files into per-file update decisions.
type Resolver struct {
	registry Registry
	log      *zap.SugaredLogger
}

func NewResolver(registry Registry, log *zap.SugaredLogger) *Resolver {
	return &Resolver{registry: registry, log: log}
}

// Resolve scans the profile's folder and produces one Decision per mod
// file. A file that cannot be hashed becomes a failed decision; only an
// unreadable folder or a failed bulk lookup aborts the whole batch.
func (r *Resolver) Resolve(ctx context.Context, profile config.Profile) ([]Decision, error) {
	paths, err := ScanFolder(profile.Folder)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		r.log.Infow("No mod files found", zap.String("folder", profile.Folder))
		return nil, nil
	}

	decisions := make([]Decision, 0, len(paths))
	var hashes []string
	for _, path := range paths {
		info, statErr := os.Stat(path)
		if statErr != nil {
			decisions = append(decisions, Decision{
				File:   ModFile{Path: path},
				Status: StatusFailed,
				Err:    fmt.Errorf("failed to stat %s: %w", path, statErr),
			})
			continue
		}

		hash, hashErr := HashFile(path)
		if hashErr != nil {
			r.log.Warnw("Failed to calculate hash", zap.String("file", path), zap.Error(hashErr))
			decisions = append(decisions, Decision{
				File:   ModFile{Path: path, Size: info.Size()},
				Status: StatusFailed,
				Err:    hashErr,
			})
			continue
		}

		decisions = append(decisions, Decision{
			File: ModFile{Path: path, Size: info.Size(), SHA512: hash},
		})
		hashes = append(hashes, hash)
	}

	if len(hashes) == 0 {
		return decisions, nil
	}

	// Two bulk round trips for the whole folder.
	current, err := r.registry.VersionsByHash(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to check current versions: %w", err)
	}
	latest, err := r.registry.LatestVersions(ctx, hashes, profile.Loaders, profile.GameVersions)
	if err != nil {
		return nil, fmt.Errorf("failed to check latest versions: %w", err)
	}

	for i := range decisions {
		d := &decisions[i]
		if d.Status == StatusFailed {
			continue
		}
		r.classify(d, current, latest)
	}
	return decisions, nil
}

func (r *Resolver) classify(d *Decision, current, latest map[string]modrinth.Version) {
	installed, known := current[d.File.SHA512]
	if !known {
		d.Status = StatusUnknown
		return
	}
	d.Installed = &installed

	candidate, ok := latest[d.File.SHA512]
	if !ok {
		// Known mod but no compatible version to move to.
		d.Status = StatusUpToDate
		return
	}

	file := candidate.PrimaryFile()
	if file == nil {
		d.Status = StatusFailed
		d.Err = fmt.Errorf("latest version %s of %s has no files", candidate.ID, candidate.ProjectID)
		return
	}

	// Up to date only when the installed file is the latest compatible
	// version, byte for byte. Matching some older known version is not
	// enough.
	if file.SHA512() == d.File.SHA512 {
		d.Status = StatusUpToDate
		return
	}

	d.Status = StatusUpdateAvailable
	d.Candidate = &candidate
}
