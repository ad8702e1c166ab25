// Package commands holds the work behind each xupg subcommand. Rendering
// and prompts stay in main.
package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"xupg/internal/catalog"
	"xupg/internal/config"
	"xupg/internal/installer"
	"xupg/internal/netutil"
	"xupg/internal/platform"
	"xupg/internal/registry"

	"github.com/rs/zerolog"
)

// App carries what every command needs
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Client   *http.Client
	Store    registry.Store
	Platform func() (platform.Platform, error)
}

// NewApp wires the shared HTTP client and the download store from cfg.
func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	root, err := cfg.ResolveDownloadDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine download directory: %w", err)
	}
	log.Debug().Str("downloads", root).Str("config", cfg.Path()).Msg("app configured")

	return &App{
		Config:   cfg,
		Log:      log,
		Client:   netutil.NewClient(cfg.Timeout()),
		Store:    registry.NewDirStore(root),
		Platform: platform.Detect,
	}, nil
}

// CatalogURL returns the configured catalog or the published one
func (a *App) CatalogURL() string {
	if a.Config != nil && a.Config.CatalogURL != "" {
		return a.Config.CatalogURL
	}
	return catalog.DefaultURL
}

// FetchCatalog downloads the release catalog.
func (a *App) FetchCatalog(ctx context.Context) (catalog.Catalog, error) {
	return catalog.Fetch(ctx, a.Client, a.CatalogURL(), a.Log)
}

// LocalPackage loads the archives already downloaded for kind.
func (a *App) LocalPackage(kind registry.Kind) (*registry.Package, []registry.FilenameError, error) {
	pkg := registry.New(kind, a.Store, registry.WithLogger(a.Log))
	unrecognized, err := pkg.LoadLocalVersions()
	if err != nil {
		return nil, nil, err
	}
	return pkg, unrecognized, nil
}

// RemotePackage lists the catalog releases of kind for plat.
func (a *App) RemotePackage(cat catalog.Catalog, plat platform.Platform, kind registry.Kind) *registry.Package {
	pkg := registry.New(kind, a.Store, registry.WithLogger(a.Log))
	versions, _ := cat.Versions(plat.String(), kind.Slug())
	for v, info := range versions {
		pkg.AddVersion(registry.NewRemote(kind.Name(), v, info.URL, ""))
	}
	return pkg
}

// OnlineRows returns "Version | Release Date" rows, newest first. ok is
// false when the catalog has nothing for kind on plat.
func OnlineRows(cat catalog.Catalog, plat platform.Platform, kind registry.Kind) (rows [][]string, ok bool) {
	versions, ok := cat.Versions(plat.String(), kind.Slug())
	if !ok {
		return nil, false
	}

	keys := make([]string, 0, len(versions))
	for v := range versions {
		keys = append(keys, v)
	}
	registry.SortVersions(keys)

	rows = make([][]string, len(keys))
	for i, v := range keys {
		rows[i] = []string{v, versions[v].ReleaseDate}
	}
	return rows, true
}

// LocalRows returns "Version | Location | Size" rows, newest first.
func LocalRows(pkg *registry.Package) [][]string {
	versions := pkg.Versions()
	rows := make([][]string, len(versions))
	for i, v := range versions {
		rows[i] = []string{v.Version, v.Location(), v.Size()}
	}
	return rows
}

// NewDownloader returns a downloader configured from the app settings.
// progress may be nil.
func (a *App) NewDownloader(progress func(installer.Task) installer.Progress) *installer.Downloader {
	opts := []installer.DownloaderOption{
		installer.WithHTTPClient(a.Client),
		installer.WithLogger(a.Log),
	}
	if a.Config != nil {
		opts = append(opts,
			installer.WithConcurrency(a.Config.Concurrency),
			installer.WithUserAgent(a.Config.UserAgent))
	}
	if progress != nil {
		opts = append(opts, installer.WithProgress(progress))
	}
	return installer.NewDownloader(opts...)
}

// Install extracts version of pkg into target and records the install in
// the config. A config that cannot be saved does not fail the install.
func (a *App) Install(pkg *registry.Package, version, target string, progress installer.Progress) error {
	if err := pkg.InstallVersion(version, target, progress); err != nil {
		return err
	}

	if a.Config != nil {
		a.Config.AddInstalled(config.InstalledPackage{
			Package:     pkg.Kind().Slug(),
			Version:     version,
			Path:        target,
			InstalledAt: time.Now().Format(time.RFC3339),
		})
		if err := a.Config.Save(); err != nil {
			a.Log.Warn().Err(err).Msg("failed to record install")
		}
	}
	return nil
}
