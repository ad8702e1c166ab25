// Package registry tracks the versions of one package known to a command:
// archives already downloaded and releases offered by the catalog.
package registry

import (
	"cmp"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
)

// Package is the version registry of one package kind. It is owned by a
// single command invocation and is not safe for concurrent use.
type Package struct {
	kind     Kind
	store    Store
	versions map[string]Version
	log      zerolog.Logger
}

// Option configures a Package
type Option func(*Package)

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Package) {
		p.log = log
	}
}

// New creates an empty registry for kind backed by store.
func New(kind Kind, store Store, opts ...Option) *Package {
	p := &Package{
		kind:     kind,
		store:    store,
		versions: make(map[string]Version),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind returns the package kind
func (p *Package) Kind() Kind {
	return p.kind
}

// Name returns the display name of the package
func (p *Package) Name() string {
	return p.kind.Name()
}

// AddVersion inserts v, replacing any entry with the same version string.
func (p *Package) AddVersion(v Version) {
	p.versions[v.Version] = v
}

// AddVersions inserts every version in order.
func (p *Package) AddVersions(vs []Version) {
	for _, v := range vs {
		p.AddVersion(v)
	}
}

// LoadLocalVersions adds a local version for every archive in the store.
// Archives whose name carries no version are skipped and returned so the
// caller can report them; the error is set only when the store itself
// cannot be read.
func (p *Package) LoadLocalVersions() ([]FilenameError, error) {
	archives, err := p.store.Archives(p.kind)
	if err != nil {
		return nil, err
	}

	var unrecognized []FilenameError
	for _, a := range archives {
		version, err := ParseArchiveName(a.Name)
		if err != nil {
			p.log.Warn().Str("path", a.Path).Msg("unrecognized archive name")
			unrecognized = append(unrecognized, FilenameError{Path: a.Path})
			continue
		}
		p.AddVersion(NewLocal(p.kind.Name(), version, a.Path, a.Size))
	}

	p.log.Debug().
		Str("package", p.kind.Slug()).
		Int("archives", len(archives)).
		Int("unrecognized", len(unrecognized)).
		Msg("local versions loaded")
	return unrecognized, nil
}

// HasVersion reports whether version is registered
func (p *Package) HasVersion(version string) bool {
	_, ok := p.versions[version]
	return ok
}

// GetVersion returns the registered entry for version
func (p *Package) GetVersion(version string) (Version, bool) {
	v, ok := p.versions[version]
	return v, ok
}

// RemoveVersion drops version from the registry, if present
func (p *Package) RemoveVersion(version string) {
	delete(p.versions, version)
}

// Len returns the number of registered versions
func (p *Package) Len() int {
	return len(p.versions)
}

// Versions returns every entry, newest first.
func (p *Package) Versions() []Version {
	keys := make([]string, 0, len(p.versions))
	for k := range p.versions {
		keys = append(keys, k)
	}
	SortVersions(keys)

	out := make([]Version, len(keys))
	for i, k := range keys {
		out[i] = p.versions[k]
	}
	return out
}

// ArchivePath is where the archive for version would be stored.
func (p *Package) ArchivePath(version, downloadURL string) string {
	return p.store.ArchivePath(p.kind, ArchiveFileName(p.kind, version, downloadURL))
}

// ParseArchiveName extracts the version from a "<package>-<version>.<ext>"
// file name: the second hyphen separated token, without the extension.
func ParseArchiveName(name string) (string, error) {
	parts := strings.Split(name, "-")
	ext := filepath.Ext(name)
	if len(parts) < 2 || ext == "" {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedFilename, name)
	}

	version := strings.TrimSuffix(parts[1], ext)
	if version == "" {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedFilename, name)
	}
	return version, nil
}

// ArchiveFileName names the archive of a download: the kind slug, the
// version and the extension of the URL path (".zip" when it has none).
func ArchiveFileName(kind Kind, version, downloadURL string) string {
	ext := ".zip"
	if u, err := url.Parse(downloadURL); err == nil {
		if e := path.Ext(u.Path); e != "" && e != "." {
			ext = e
		}
	}
	return fmt.Sprintf("%s-%s%s", kind.Slug(), version, ext)
}

// SortVersions orders versions newest first. Semantic versions compare by
// precedence, ties broken by the raw string, and come before anything
// that does not parse, which is ordered lexically.
func SortVersions(versions []string) {
	parsed := make(map[string]*semver.Version, len(versions))
	for _, v := range versions {
		if sv, err := semver.NewVersion(v); err == nil {
			parsed[v] = sv
		}
	}

	slices.SortStableFunc(versions, func(a, b string) int {
		va, vb := parsed[a], parsed[b]
		switch {
		case va != nil && vb != nil:
			if c := vb.Compare(va); c != 0 {
				return c
			}
		case va != nil:
			return -1
		case vb != nil:
			return 1
		}
		return cmp.Compare(b, a)
	})
}
