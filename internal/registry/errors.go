package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionNotAvailable is returned when a version is not in the registry.
	ErrVersionNotAvailable = errors.New("version is not available")

	// ErrPathDoesNotExist is returned when an install target is missing.
	ErrPathDoesNotExist = errors.New("path does not exist")

	// ErrUnavailableOffline is returned when installing a version that has
	// not been downloaded.
	ErrUnavailableOffline = errors.New("version is not available offline")

	// ErrInstallFailed wraps every extraction failure.
	ErrInstallFailed = errors.New("installation failed")

	// ErrUnrecognizedFilename marks an archive whose name carries no version.
	ErrUnrecognizedFilename = errors.New("unrecognized archive filename")
)

// FilenameError reports an archive in the download directory that could not
// be mapped to a version.
type FilenameError struct {
	Path string
}

func (e *FilenameError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, ErrUnrecognizedFilename)
}

func (e *FilenameError) Unwrap() error {
	return ErrUnrecognizedFilename
}
