package registry

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"xupg/internal/installer"

	tea "github.com/charmbracelet/bubbletea"
)

func TestInstallVersionExtractsLocalArchive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewDirStore(root)
	writeArchive(t, store.ArchivePath(PHP, "php-8.2.1.zip"),
		map[string]string{"bin/php": "php binary"},
		[]string{"lib/"})

	pkg := New(PHP, store)
	if _, err := pkg.LoadLocalVersions(); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	if err := pkg.InstallVersion("8.2.1", out, nil); err != nil {
		t.Fatalf("InstallVersion failed: %v", err)
	}

	if data, err := os.ReadFile(filepath.Join(out, "bin", "php")); err != nil || string(data) != "php binary" {
		t.Fatalf("bin/php missing or wrong: %q %v", data, err)
	}
	if info, err := os.Stat(filepath.Join(out, "lib")); err != nil || !info.IsDir() {
		t.Fatalf("lib/ missing: %v", err)
	}
}

func TestInstallVersionNotAvailable(t *testing.T) {
	t.Parallel()

	pkg := New(PHP, &memStore{})
	err := pkg.InstallVersion("9.9.9", t.TempDir(), nil)
	if !errors.Is(err, ErrVersionNotAvailable) {
		t.Fatalf("expected ErrVersionNotAvailable, got %v", err)
	}
}

func TestInstallVersionChecksVersionBeforePath(t *testing.T) {
	t.Parallel()

	pkg := New(PHP, &memStore{})
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	err := pkg.InstallVersion("9.9.9", missing, nil)
	if !errors.Is(err, ErrVersionNotAvailable) {
		t.Fatalf("expected ErrVersionNotAvailable, got %v", err)
	}
	if errors.Is(err, ErrPathDoesNotExist) {
		t.Fatal("path must not be checked before the version")
	}
}

func TestInstallVersionMissingTarget(t *testing.T) {
	t.Parallel()

	pkg := New(PHP, &memStore{})
	pkg.AddVersion(NewLocal("PHP", "8.2.1", "/nowhere/php-8.2.1.zip", 1))

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	err := pkg.InstallVersion("8.2.1", missing, nil)
	if !errors.Is(err, ErrPathDoesNotExist) {
		t.Fatalf("expected ErrPathDoesNotExist, got %v", err)
	}
	if _, statErr := os.Stat(missing); !os.IsNotExist(statErr) {
		t.Fatal("installer must not create the target directory")
	}
}

func TestInstallVersionRemoteOnly(t *testing.T) {
	t.Parallel()

	pkg := New(PHP, &memStore{})
	pkg.AddVersion(NewRemote("PHP", "8.3.0", "https://example.com/php-8.3.0.zip", ""))

	err := pkg.InstallVersion("8.3.0", t.TempDir(), nil)
	if !errors.Is(err, ErrUnavailableOffline) {
		t.Fatalf("expected ErrUnavailableOffline, got %v", err)
	}
}

func TestInstallVersionCorruptArchive(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "php-8.2.1.zip")
	if err := os.WriteFile(archive, []byte("truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	pkg := New(PHP, &memStore{})
	pkg.AddVersion(NewLocal("PHP", "8.2.1", archive, 9))

	out := t.TempDir()
	err := pkg.InstallVersion("8.2.1", out, nil)
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("expected ErrInstallFailed, got %v", err)
	}

	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Fatalf("failed install left %d entries in target", len(entries))
	}
}

type finishCounter struct {
	finished int
	msg      string
}

func (f *finishCounter) SetTotal(int64) {}
func (f *finishCounter) Advance(int64)  {}
func (f *finishCounter) Finish(msg string) {
	f.finished++
	f.msg = msg
}

func TestInstallVersionFinishesProgressOnFailedChecks(t *testing.T) {
	t.Parallel()

	pkg := New(PHP, &memStore{})
	pkg.AddVersion(NewLocal("PHP", "8.2.1", "/nowhere/php-8.2.1.zip", 1))
	pkg.AddVersion(NewRemote("PHP", "8.3.0", "https://example.com/php-8.3.0.zip", ""))

	tests := []struct {
		name    string
		version string
		target  string
		want    error
	}{
		{name: "unknown version", version: "9.9.9", target: t.TempDir(), want: ErrVersionNotAvailable},
		{name: "missing target", version: "8.2.1", target: filepath.Join(t.TempDir(), "nope"), want: ErrPathDoesNotExist},
		{name: "remote only", version: "8.3.0", target: t.TempDir(), want: ErrUnavailableOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress := &finishCounter{}
			err := pkg.InstallVersion(tt.version, tt.target, progress)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if progress.finished != 1 {
				t.Fatalf("Finish called %d times, want 1", progress.finished)
			}
		})
	}
}

func TestInstallVersionFailureReleasesProgressDisplay(t *testing.T) {
	pkg := New(PHP, &memStore{})

	bars := installer.NewMultiProgress(tea.WithInput(nil), tea.WithOutput(io.Discard))
	sink := bars.Add("Extracting PHP 9.9.9", installer.Items)
	bars.Start()

	if err := pkg.InstallVersion("9.9.9", t.TempDir(), sink); !errors.Is(err, ErrVersionNotAvailable) {
		t.Fatalf("expected ErrVersionNotAvailable, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		bars.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("progress display still running after a failed install")
	}
}
