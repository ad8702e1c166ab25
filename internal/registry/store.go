package registry

import (
	"fmt"
	"os"
	"path/filepath"
)

// Archive is a file found in a package's download directory
type Archive struct {
	Name string
	Path string
	Size int64
}

// Store is where downloaded archives live.
type Store interface {
	// Archives lists the regular files stored for kind.
	Archives(kind Kind) ([]Archive, error)
	// ArchivePath is where an archive named fileName is stored for kind.
	ArchivePath(kind Kind, fileName string) string
}

// DirStore keeps archives under Root/<kind slug>/.
type DirStore struct {
	Root string
}

// NewDirStore creates a store rooted at root
func NewDirStore(root string) DirStore {
	return DirStore{Root: root}
}

// Dir returns the download directory of kind.
func (s DirStore) Dir(kind Kind) string {
	return filepath.Join(s.Root, kind.Slug())
}

func (s DirStore) ArchivePath(kind Kind, fileName string) string {
	return filepath.Join(s.Dir(kind), fileName)
}

// Archives lists the files of kind's directory. A directory that does not
// exist yet holds no archives.
func (s DirStore) Archives(kind Kind) ([]Archive, error) {
	dir := s.Dir(kind)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read download directory %s: %w", dir, err)
	}

	archives := make([]Archive, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		archives = append(archives, Archive{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
			Size: info.Size(),
		})
	}
	return archives, nil
}
