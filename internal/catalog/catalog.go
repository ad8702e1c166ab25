// Package catalog models the remote release catalog: platform → tool → version.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// DefaultURL is the published release catalog.
const DefaultURL = "https://codad5.github.io/xupg-rs/api/releases.json"

// ErrFetch marks every catalog failure: network, status or document shape.
var ErrFetch = errors.New("failed to fetch release catalog")

// ReleaseInfo describes one downloadable release
type ReleaseInfo struct {
	URL         string `json:"url"`
	ReleaseDate string `json:"release_date"`
}

// ToolVersions maps a version string to its release
type ToolVersions map[string]ReleaseInfo

// Platform maps a lowercase tool name to its versions
type Platform map[string]ToolVersions

// Catalog maps a platform name ("windows", "linux", "macos") to its tools.
// It is read-only once fetched.
type Catalog map[string]Platform

// Fetch downloads and decodes the catalog. It does not retry.
func Fetch(ctx context.Context, client *http.Client, url string, log zerolog.Logger) (Catalog, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("url", url).Msg("fetching catalog")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: catalog returned status %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrFetch, err)
	}

	cat, err := Parse(body)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("platforms", len(cat)).Msg("catalog loaded")
	return cat, nil
}

// Parse decodes a catalog document. A document whose keys carry the wrong
// shape is a parse failure, never an empty catalog.
func Parse(data []byte) (Catalog, error) {
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", ErrFetch, err)
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: parse catalog: empty document", ErrFetch)
	}
	return cat, nil
}

// Versions returns every release of tool on platform.
func (c Catalog) Versions(platform, tool string) (ToolVersions, bool) {
	tools, ok := c[platform]
	if !ok {
		return nil, false
	}
	versions, ok := tools[tool]
	return versions, ok
}

// Resolve looks up a single release. A missing platform, tool or version is
// reported as not found rather than as an error.
func (c Catalog) Resolve(platform, tool, version string) (ReleaseInfo, bool) {
	versions, ok := c.Versions(platform, tool)
	if !ok {
		return ReleaseInfo{}, false
	}
	info, ok := versions[version]
	return info, ok
}
