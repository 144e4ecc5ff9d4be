package modrinth

import "time"

// Project represents a Modrinth project.
type Project struct {
	Slug        string `json:"slug"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	ProjectType string `json:"project_type"` // e.g., "mod"
	ClientSide  string `json:"client_side"`  // required, optional, unsupported, unknown
	ServerSide  string `json:"server_side"`
}

// Version represents a Modrinth project version.
type Version struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Name          string    `json:"name"`
	VersionNumber string    `json:"version_number"`
	GameVersions  []string  `json:"game_versions"`
	Loaders       []string  `json:"loaders"`
	DatePublished time.Time `json:"date_published"`
	Files         []File    `json:"files"`
}

// File represents a file within a Modrinth version.
type File struct {
	Filename string            `json:"filename"`
	URL      string            `json:"url"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
	Hashes   map[string]string `json:"hashes"` // e.g., {"sha512": "...", "sha1": "..."}
}

// PrimaryFile locates the primary file of a version, or the first file
// if no primary is marked.
func (v Version) PrimaryFile() *File {
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i]
		}
	}
	if len(v.Files) > 0 {
		return &v.Files[0]
	}
	return nil
}

// SHA512 returns the file's sha512 digest as indexed by the registry.
func (f File) SHA512() string {
	return f.Hashes[HashAlgorithm]
}
