package registry

import (
	"fmt"
	"os"

	"xupg/internal/installer"
)

// InstallVersion extracts the archive of version into target. The version
// must be registered and downloaded, and target must already exist; those
// checks run in that order. A nil progress reports nothing. Progress is
// finished on every return path, including failed checks.
func (p *Package) InstallVersion(version, target string, progress installer.Progress) error {
	archive, err := p.installable(version, target)
	if err != nil {
		if progress != nil {
			progress.Finish("Not installed: " + err.Error())
		}
		return err
	}

	p.log.Debug().
		Str("archive", archive).
		Str("target", target).
		Msg("extracting")

	if err := installer.ExtractZip(archive, target, progress); err != nil {
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	return nil
}

// installable runs the pre-extraction checks and returns the archive path.
func (p *Package) installable(version, target string) (string, error) {
	v, ok := p.GetVersion(version)
	if !ok {
		return "", fmt.Errorf("%s %s: %w", p.kind.Name(), version, ErrVersionNotAvailable)
	}

	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s: %w", target, ErrPathDoesNotExist)
	}

	local, ok := v.Local()
	if !ok {
		return "", fmt.Errorf("%s %s: %w", p.kind.Name(), version, ErrUnavailableOffline)
	}
	return local.Path, nil
}
