//go:build windows

package env

import (
	"path/filepath"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const (
	xamppRegPath  = `SOFTWARE\xampp`
	elevationHint = "Run the command from a terminal opened as Administrator."
)

// SystemRoot returns the root of the drive Windows is installed on, e.g. C:\.
func SystemRoot() (string, error) {
	dir, err := windows.GetSystemWindowsDirectory()
	if err != nil {
		return "", err
	}
	return filepath.VolumeName(dir) + `\`, nil
}

// XamppRoot returns the XAMPP install directory recorded by its installer,
// or <system drive>\xampp.
func XamppRoot() string {
	if dir := xamppInstallDir(); dir != "" {
		return dir
	}
	root, err := SystemRoot()
	if err != nil {
		root = `C:\`
	}
	return filepath.Join(root, "xampp")
}

func xamppInstallDir() string {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, xamppRegPath, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer key.Close()

	dir, _, err := key.GetStringValue("Install_Dir")
	if err != nil {
		return ""
	}
	return filepath.Clean(dir)
}

// IsElevated checks if the current process is running with administrator privileges
func IsElevated() bool {
	var sid *windows.SID

	// Get SID for Administrators group
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	// Check if current token is member of administrators group
	member, err := windows.Token(0).IsMember(sid)
	if err != nil {
		return false
	}
	return member
}
