// Package updater replaces the running xupg binary with the latest GitHub
// release.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"xupg/internal/config"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/rs/zerolog"
)

const (
	// GitHubRepo is the repository xupg releases are published to
	GitHubRepo = "codad5/xupg"

	// CheckInterval is minimum time between update checks
	CheckInterval = 24 * time.Hour

	// UpdateTimeout is maximum time for update operations
	UpdateTimeout = 5 * time.Minute
)

// ErrNoRelease is returned when the repository has no matching release.
var ErrNoRelease = errors.New("no releases found")

// Updater handles checking and applying updates
type Updater struct {
	config         *config.Config
	currentVersion string
	selfUpdater    *selfupdate.Updater
	log            zerolog.Logger
}

// NewUpdater creates a new Updater instance
func NewUpdater(cfg *config.Config, version string, log zerolog.Logger) (*Updater, error) {
	// Release assets are verified against the published SHA256 sums
	su, err := selfupdate.NewUpdater(selfupdate.Config{
		Validator: &selfupdate.ChecksumValidator{
			UniqueFilename: "SHA256SUMS.txt",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	return &Updater{
		config:         cfg,
		currentVersion: cleanVersion(version),
		selfUpdater:    su,
		log:            log,
	}, nil
}

// CurrentVersion returns the running version without its "v" prefix
func (u *Updater) CurrentVersion() string {
	return u.currentVersion
}

// ShouldCheckForUpdate reports whether a background check is due. Dev
// builds never check.
func (u *Updater) ShouldCheckForUpdate() bool {
	if !u.config.UpdateConfig.Enabled || !u.config.UpdateConfig.AutoCheck {
		return false
	}
	if u.currentVersion == "" || u.currentVersion == "dev" {
		return false
	}

	// Rate limit: check at most once per CheckInterval
	return time.Since(u.config.UpdateConfig.LastCheck) >= CheckInterval
}

// CheckForUpdate queries GitHub for the latest release.
// Returns nil if no update available or if user skipped this version
func (u *Updater) CheckForUpdate(ctx context.Context) (*selfupdate.Release, error) {
	latest, found, err := u.selfUpdater.DetectLatest(ctx, selfupdate.ParseSlug(GitHubRepo))
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return nil, ErrNoRelease
	}

	u.config.UpdateConfig.LastCheck = time.Now()
	if err := u.config.Save(); err != nil {
		u.log.Warn().Err(err).Msg("failed to save last update check")
	}

	if latest.LessOrEqual(u.currentVersion) {
		return nil, nil
	}
	if u.config.UpdateConfig.SkipVersion == latest.Version() {
		u.log.Debug().Str("version", latest.Version()).Msg("release skipped by user")
		return nil, nil
	}

	return latest, nil
}

// PerformUpdate downloads and installs the release. The current binary is
// backed up first and restored if the update fails.
func (u *Updater) PerformUpdate(ctx context.Context, release *selfupdate.Release) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine executable path: %w", err)
	}

	backup := exe + ".backup"
	if err := copyFile(exe, backup); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, release.AssetURL, release.AssetName, exe); err != nil {
		if rollbackErr := os.Rename(backup, exe); rollbackErr != nil {
			return fmt.Errorf("update failed and rollback failed: update error: %w, rollback error: %v", err, rollbackErr)
		}
		return fmt.Errorf("update failed (rolled back): %w", err)
	}

	if err := os.Remove(backup); err != nil {
		u.log.Debug().Err(err).Str("backup", backup).Msg("backup not removed")
	}
	return nil
}

// SkipVersion marks a version as skipped by the user
func (u *Updater) SkipVersion(version string) error {
	u.config.UpdateConfig.SkipVersion = version
	return u.config.Save()
}

// copyFile creates a copy of the file for backup purposes
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0755)
}

// cleanVersion removes 'v' prefix if present for consistent comparison
func cleanVersion(version string) string {
	return strings.TrimPrefix(strings.TrimSpace(version), "v")
}
