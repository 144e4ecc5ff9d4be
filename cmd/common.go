package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"modsync/config"
	"modsync/db"
	"modsync/logger"
	"modsync/modrinth"
	"modsync/ui"
	"modsync/updater"

	"go.uber.org/zap"
)

// bootstrap handles shared initialization logic for commands.
func bootstrap() (config.Config, config.Profile, *modrinth.Client) {
	cfg, err := config.LoadConfig(cfgDir)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	db.InitDatabase(cfg.DatabasePath)
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	profile, err := cfg.Resolve(profileName)
	if err != nil {
		logger.Log.Fatalw("Failed to resolve profile", zap.Error(err))
	}

	client, err := modrinth.NewClient(cfg)
	if err != nil {
		logger.Log.Fatalw("Failed to create Modrinth client", zap.Error(err))
	}

	return cfg, profile, client
}

// statusLabel renders the human-readable, colored label for a decision.
func statusLabel(d updater.Decision) string {
	switch d.Status {
	case updater.StatusUpToDate:
		return ui.Good("up to date")
	case updater.StatusUpdateAvailable:
		return ui.Warn("update available")
	case updater.StatusUnknown:
		return ui.Dim("not on modrinth")
	case updater.StatusFailed:
		return ui.Bad("failed")
	default:
		return d.Status.String()
	}
}

// versionTransition formats the installed and candidate version numbers
// for the summary table.
func versionTransition(d updater.Decision) string {
	switch {
	case d.Candidate != nil && d.Installed != nil:
		return fmt.Sprintf("%s -> %s", d.Installed.VersionNumber, d.Candidate.VersionNumber)
	case d.Installed != nil:
		return d.Installed.VersionNumber
	default:
		return ""
	}
}

// renderSummary prints the per-file table and the run totals.
func renderSummary(summary *updater.Summary) {
	for i, d := range summary.Decisions {
		label := statusLabel(d)
		if summary.Applied[i] != nil {
			label = ui.Good("updated")
		}
		transition := versionTransition(d)
		if transition != "" {
			transition = "  " + transition
		}
		fmt.Printf("%-44s %s%s\n", d.File.Name(), label, transition)
		if d.Err != nil {
			fmt.Printf("    %s\n", ui.Bad(d.Err.Error()))
		}
	}

	fmt.Printf("\n%s %d up to date, %d updated, %d available, %d unknown, %d failed\n",
		ui.Bold("Summary:"), summary.UpToDate, summary.Updated, summary.Available, summary.Unknown, summary.Failed)
}

// projectLookup is the slice of the registry client used to name mods
// when recording them.
type projectLookup interface {
	Project(ctx context.Context, id string) (*modrinth.Project, error)
}

// lookupTitle fetches the human-readable project title for a record.
// Failures degrade to an empty title rather than failing the record.
func lookupTitle(ctx context.Context, reg projectLookup, projectID string) string {
	project, err := reg.Project(ctx, projectID)
	if err != nil {
		logger.Log.Warnw("Failed to get project details",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return ""
	}
	return project.Title
}

// recordApplied persists each successful replacement: one history row
// for rollback, plus the refreshed installed-mod state.
func recordApplied(ctx context.Context, reg projectLookup, profile config.Profile, summary *updater.Summary) {
	for i, applied := range summary.Applied {
		if applied == nil {
			continue
		}
		d := summary.Decisions[i]

		oldVersionID := ""
		if d.Installed != nil {
			oldVersionID = d.Installed.ID
		}

		record := db.AppliedUpdate{
			Profile:      profile.Name,
			FileName:     filepath.Base(applied.NewPath),
			OldPath:      applied.OldPath,
			NewPath:      applied.NewPath,
			OldVersionID: oldVersionID,
			NewVersionID: d.Candidate.ID,
			BackupPath:   applied.BackupPath,
		}
		if err := db.DB.Create(&record).Error; err != nil {
			logger.Log.Warnw("Failed to save update history", zap.Error(err))
		}

		var mod db.InstalledMod
		result := db.DB.Where("profile = ? AND file_name = ?", profile.Name, filepath.Base(applied.OldPath)).First(&mod)

		mod.Profile = profile.Name
		mod.FileName = filepath.Base(applied.NewPath)
		mod.InstallPath = applied.NewPath
		mod.SHA512 = d.Candidate.PrimaryFile().SHA512()
		mod.ProjectID = d.Candidate.ProjectID
		mod.Title = lookupTitle(ctx, reg, d.Candidate.ProjectID)
		mod.VersionID = d.Candidate.ID
		mod.VersionNumber = d.Candidate.VersionNumber

		if result.Error == nil {
			if err := db.DB.Save(&mod).Error; err != nil {
				logger.Log.Warnw("Failed to update installed mod record", zap.Error(err))
			}
		} else {
			if err := db.DB.Create(&mod).Error; err != nil {
				logger.Log.Warnw("Failed to save installed mod record", zap.Error(err))
			}
		}
	}
}
