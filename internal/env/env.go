// Package env answers questions about the host that decide where XAMPP
// lives and whether xupg may write there.
package env

import "path/filepath"

// XamppPHPPath is the PHP directory of the local XAMPP installation.
func XamppPHPPath() string {
	return filepath.Join(XamppRoot(), "php")
}

// ElevationHint tells the user how to rerun a command with the privileges
// a system directory needs.
func ElevationHint() string {
	if IsElevated() {
		return ""
	}
	return elevationHint
}
