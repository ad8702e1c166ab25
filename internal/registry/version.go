package registry

import "fmt"

// Source tells where a version's archive lives. It is either Local or Remote.
type Source interface {
	isSource()
}

// Local is an archive already downloaded to disk
type Local struct {
	Path  string
	Bytes int64
}

// Remote is a catalog entry that still has to be downloaded
type Remote struct {
	URL  string
	Size string
}

func (Local) isSource()  {}
func (Remote) isSource() {}

// Version is one entry of a registry
type Version struct {
	Name    string
	Version string
	Source  Source
}

// NewLocal creates a version backed by an archive on disk.
func NewLocal(name, version, path string, size int64) Version {
	return Version{Name: name, Version: version, Source: Local{Path: path, Bytes: size}}
}

// NewRemote creates a version backed by a download URL. An empty size is
// displayed as "Unknown".
func NewRemote(name, version, url, size string) Version {
	return Version{Name: name, Version: version, Source: Remote{URL: url, Size: size}}
}

// Offline reports whether the archive is on disk.
func (v Version) Offline() bool {
	_, ok := v.Source.(Local)
	return ok
}

// Local returns the on-disk source, if any.
func (v Version) Local() (Local, bool) {
	l, ok := v.Source.(Local)
	return l, ok
}

// Remote returns the download source, if any.
func (v Version) Remote() (Remote, bool) {
	r, ok := v.Source.(Remote)
	return r, ok
}

// Location is the archive path for local versions and the URL otherwise.
func (v Version) Location() string {
	switch s := v.Source.(type) {
	case Local:
		return s.Path
	case Remote:
		return s.URL
	}
	return ""
}

// Size renders the archive size: whole megabytes for local archives.
func (v Version) Size() string {
	switch s := v.Source.(type) {
	case Local:
		return fmt.Sprintf("%d MB", s.Bytes/1024/1024)
	case Remote:
		if s.Size != "" {
			return s.Size
		}
	}
	return "Unknown"
}
