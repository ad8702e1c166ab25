package commands

import (
	"xupg/internal/catalog"
	"xupg/internal/installer"
	"xupg/internal/platform"
	"xupg/internal/registry"
)

// Download is one planned archive download
type Download struct {
	Version string
	Task    installer.Task
}

// Plan is the outcome of resolving requested versions against the catalog
// and the local archives.
type Plan struct {
	Kind      registry.Kind
	Downloads []Download
	// Missing versions are not in the catalog for this platform.
	Missing []string
	// Present versions are already downloaded.
	Present []string
}

// Tasks returns the download tasks in request order
func (p Plan) Tasks() []installer.Task {
	tasks := make([]installer.Task, len(p.Downloads))
	for i, d := range p.Downloads {
		tasks[i] = d.Task
	}
	return tasks
}

// PlanDownloads resolves each requested version. Versions already held by
// local are skipped, versions the catalog lacks are reported missing and
// every other one becomes a download into local's store. Duplicates are
// planned once.
func PlanDownloads(cat catalog.Catalog, plat platform.Platform, local *registry.Package, versions []string) Plan {
	plan := Plan{Kind: local.Kind()}
	seen := make(map[string]bool, len(versions))

	for _, v := range versions {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true

		if existing, ok := local.GetVersion(v); ok && existing.Offline() {
			plan.Present = append(plan.Present, v)
			continue
		}

		info, ok := cat.Resolve(plat.String(), local.Kind().Slug(), v)
		if !ok {
			plan.Missing = append(plan.Missing, v)
			continue
		}

		plan.Downloads = append(plan.Downloads, Download{
			Version: v,
			Task: installer.Task{
				URL:  info.URL,
				Dest: local.ArchivePath(v, info.URL),
			},
		})
	}
	return plan
}
