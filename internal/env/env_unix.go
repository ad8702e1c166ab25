//go:build unix

package env

import "golang.org/x/sys/unix"

const elevationHint = "Run the command again with sudo."

// SystemRoot returns the filesystem root
func SystemRoot() (string, error) {
	return "/", nil
}

// XamppRoot returns the LAMPP install directory
func XamppRoot() string {
	return "/opt/lampp"
}

// IsElevated reports whether the process runs as root
func IsElevated() bool {
	return unix.Geteuid() == 0
}
