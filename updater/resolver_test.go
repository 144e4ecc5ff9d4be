package updater

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"modsync/config"
	"modsync/modrinth"

	"go.uber.org/zap"
)

// fakeRegistry serves canned responses keyed by hash.
type fakeRegistry struct {
	current map[string]modrinth.Version
	latest  map[string]modrinth.Version

	lastLoaders      []string
	lastGameVersions []string
}

func (f *fakeRegistry) VersionsByHash(_ context.Context, hashes []string) (map[string]modrinth.Version, error) {
	out := map[string]modrinth.Version{}
	for _, h := range hashes {
		if v, ok := f.current[h]; ok {
			out[h] = v
		}
	}
	return out, nil
}

func (f *fakeRegistry) LatestVersions(_ context.Context, hashes, loaders, gameVersions []string) (map[string]modrinth.Version, error) {
	f.lastLoaders = loaders
	f.lastGameVersions = gameVersions
	out := map[string]modrinth.Version{}
	for _, h := range hashes {
		if v, ok := f.latest[h]; ok {
			out[h] = v
		}
	}
	return out, nil
}

func makeVersion(id, projectID, number, filename, sha512 string) modrinth.Version {
	return modrinth.Version{
		ID:            id,
		ProjectID:     projectID,
		VersionNumber: number,
		DatePublished: time.Now(),
		Files: []modrinth.File{{
			Filename: filename,
			URL:      "https://cdn.example/" + filename,
			Primary:  true,
			Hashes:   map[string]string{modrinth.HashAlgorithm: sha512},
		}},
	}
}

func writeMod(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func hashOf(t *testing.T, path string) string {
	t.Helper()
	h, err := HashFile(path)
	if err != nil {
		t.Fatalf("Failed to hash %s: %v", path, err)
	}
	return h
}

func testProfile(folder string) config.Profile {
	return config.Profile{
		Name:         "test",
		Folder:       folder,
		GameVersions: []string{"1.20.1"},
		Loaders:      []string{"fabric"},
		BackupMods:   true,
	}
}

func TestResolveUpToDate(t *testing.T) {
	dir := t.TempDir()
	path := writeMod(t, dir, "sodium.jar", "current bytes")
	hash := hashOf(t, path)

	installed := makeVersion("v1", "proj", "1.0.0", "sodium.jar", hash)
	reg := &fakeRegistry{
		current: map[string]modrinth.Version{hash: installed},
		latest:  map[string]modrinth.Version{hash: installed},
	}

	decisions, err := NewResolver(reg, zap.NewNop().Sugar()).Resolve(context.Background(), testProfile(dir))
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("Resolve() produced %d decisions, want 1", len(decisions))
	}
	if decisions[0].Status != StatusUpToDate {
		t.Errorf("Status = %s, want %s", decisions[0].Status, StatusUpToDate)
	}
}

func TestResolveUpdateAvailable(t *testing.T) {
	dir := t.TempDir()
	path := writeMod(t, dir, "sodium-1.0.jar", "old bytes")
	hash := hashOf(t, path)

	reg := &fakeRegistry{
		current: map[string]modrinth.Version{hash: makeVersion("v1", "proj", "1.0.0", "sodium-1.0.jar", hash)},
		latest:  map[string]modrinth.Version{hash: makeVersion("v2", "proj", "2.0.0", "sodium-2.0.jar", "different-hash")},
	}

	decisions, err := NewResolver(reg, zap.NewNop().Sugar()).Resolve(context.Background(), testProfile(dir))
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	d := decisions[0]
	if d.Status != StatusUpdateAvailable {
		t.Fatalf("Status = %s, want %s", d.Status, StatusUpdateAvailable)
	}
	if d.Candidate == nil || d.Candidate.ID != "v2" {
		t.Errorf("Candidate = %+v, want version v2", d.Candidate)
	}
	if d.Installed == nil || d.Installed.ID != "v1" {
		t.Errorf("Installed = %+v, want version v1", d.Installed)
	}

	// Compatibility filtering travels with the bulk request.
	if !reflect.DeepEqual(reg.lastLoaders, []string{"fabric"}) {
		t.Errorf("loaders sent = %v, want [fabric]", reg.lastLoaders)
	}
	if !reflect.DeepEqual(reg.lastGameVersions, []string{"1.20.1"}) {
		t.Errorf("game versions sent = %v, want [1.20.1]", reg.lastGameVersions)
	}
}

func TestResolveUnknownMod(t *testing.T) {
	dir := t.TempDir()
	writeMod(t, dir, "homebrew.jar", "not on the registry")

	reg := &fakeRegistry{current: map[string]modrinth.Version{}, latest: map[string]modrinth.Version{}}
	decisions, err := NewResolver(reg, zap.NewNop().Sugar()).Resolve(context.Background(), testProfile(dir))
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if decisions[0].Status != StatusUnknown {
		t.Errorf("Status = %s, want %s", decisions[0].Status, StatusUnknown)
	}
}

func TestResolveNoCompatibleVersion(t *testing.T) {
	dir := t.TempDir()
	path := writeMod(t, dir, "niche.jar", "some bytes")
	hash := hashOf(t, path)

	// Known mod, but nothing compatible to move to.
	reg := &fakeRegistry{
		current: map[string]modrinth.Version{hash: makeVersion("v1", "proj", "1.0.0", "niche.jar", hash)},
		latest:  map[string]modrinth.Version{},
	}
	decisions, err := NewResolver(reg, zap.NewNop().Sugar()).Resolve(context.Background(), testProfile(dir))
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if decisions[0].Status != StatusUpToDate {
		t.Errorf("Status = %s, want %s", decisions[0].Status, StatusUpToDate)
	}
}

func TestResolveScenarioAndIdempotence(t *testing.T) {
	dir := t.TempDir()

	upToDate := writeMod(t, dir, "a-current.jar", "a bytes")
	stale := writeMod(t, dir, "b-old.jar", "b bytes")
	writeMod(t, dir, "c-unknown.jar", "c bytes")

	aHash := hashOf(t, upToDate)
	bHash := hashOf(t, stale)

	aVersion := makeVersion("a1", "proj-a", "1.0.0", "a-current.jar", aHash)
	reg := &fakeRegistry{
		current: map[string]modrinth.Version{
			aHash: aVersion,
			bHash: makeVersion("b1", "proj-b", "1.0.0", "b-old.jar", bHash),
		},
		latest: map[string]modrinth.Version{
			aHash: aVersion,
			bHash: makeVersion("b2", "proj-b", "2.0.0", "b-new.jar", "new-b-hash"),
		},
	}

	resolver := NewResolver(reg, zap.NewNop().Sugar())
	first, err := resolver.Resolve(context.Background(), testProfile(dir))
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("Resolve() produced %d decisions, want 3", len(first))
	}

	got := map[string]Status{}
	for _, d := range first {
		got[d.File.Name()] = d.Status
	}
	want := map[string]Status{
		"a-current.jar": StatusUpToDate,
		"b-old.jar":     StatusUpdateAvailable,
		"c-unknown.jar": StatusUnknown,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decision statuses = %v, want %v", got, want)
	}

	// Nothing changed locally or remotely: the second run must agree.
	second, err := resolver.Resolve(context.Background(), testProfile(dir))
	if err != nil {
		t.Fatalf("second Resolve() returned error: %v", err)
	}
	for i := range first {
		if first[i].Status != second[i].Status || first[i].File != second[i].File {
			t.Errorf("run 2 decision %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
