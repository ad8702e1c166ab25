package commands

import (
	"errors"
	"fmt"

	"xupg/internal/catalog"
	"xupg/internal/installer"
	"xupg/internal/platform"
	"xupg/internal/registry"
)

// Process exit codes
const (
	ExitOK                  = 0
	ExitError               = 1
	ExitUsage               = 2
	ExitFetch               = 3
	ExitPlatform            = 4
	ExitVersionNotAvailable = 5
	ExitPathDoesNotExist    = 6
	ExitUnavailableOffline  = 7
	ExitDownload            = 8
	ExitInstall             = 9
)

// ErrUsage marks bad command line input.
var ErrUsage = errors.New("invalid usage")

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, platform.ErrUnsupported):
		return ExitPlatform
	case errors.Is(err, catalog.ErrFetch):
		return ExitFetch
	case errors.Is(err, registry.ErrVersionNotAvailable):
		return ExitVersionNotAvailable
	case errors.Is(err, registry.ErrPathDoesNotExist):
		return ExitPathDoesNotExist
	case errors.Is(err, registry.ErrUnavailableOffline):
		return ExitUnavailableOffline
	case errors.Is(err, registry.ErrInstallFailed):
		return ExitInstall
	case errors.Is(err, installer.ErrDownload):
		return ExitDownload
	default:
		return ExitError
	}
}

// Usagef returns an error wrapping ErrUsage
func Usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) Unwrap() error { return ErrUsage }
