package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported is returned when the host OS has no catalog entry.
var ErrUnsupported = errors.New("platform not supported")

// Platform is a catalog platform key
type Platform string

const (
	Windows Platform = "windows"
	Linux   Platform = "linux"
	MacOS   Platform = "macos"
)

func (p Platform) String() string {
	return string(p)
}

// Detect returns the catalog platform for the running OS.
func Detect() (Platform, error) {
	return DetectOS(runtime.GOOS)
}

// DetectOS maps a GOOS value to a catalog platform.
func DetectOS(goos string) (Platform, error) {
	switch goos {
	case "windows":
		return Windows, nil
	case "linux":
		return Linux, nil
	case "darwin":
		return MacOS, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}
