package db

import (
	"gorm.io/gorm"
)

// InstalledMod is the last known state of a mod file in a profile folder.
type InstalledMod struct {
	gorm.Model
	Profile       string `gorm:"index:idx_profile_file,unique"`
	FileName      string `gorm:"index:idx_profile_file,unique"`
	InstallPath   string
	SHA512        string
	ProjectID     string // Modrinth Project ID
	Title         string
	VersionID     string // Modrinth Version ID
	VersionNumber string
}

// AppliedUpdate is one completed file replacement, kept so rollback can
// restore the backup it references.
type AppliedUpdate struct {
	gorm.Model
	Profile      string
	FileName     string // file name after the update
	OldPath      string
	NewPath      string
	OldVersionID string
	NewVersionID string
	BackupPath   string // empty when backups were disabled
}
