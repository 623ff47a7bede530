// Package discovery reads installed server state across both scopes.
// It is tolerant: a missing or corrupt index or manifest degrades the result rather than failing it.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
)

// Location identifies where an installed server lives on disk.
type Location struct {
	ID           string
	Scope        manifest.Scope
	ManifestPath string
	// InstallDir is the directory holding the manifest.
	InstallDir string
}

// Discovery queries installed servers.
// NewDiscovery should be used to create instances of Discovery.
type Discovery struct {
	paths  paths.Paths
	logger hclog.Logger
}

// NewDiscovery returns a Discovery over the resolved paths.
func NewDiscovery(p paths.Paths, logger hclog.Logger) *Discovery {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Discovery{
		paths:  p,
		logger: logger.Named("discovery"),
	}
}

// ListServers returns the installed servers of the requested scopes, sorted by ID.
// When both scopes hold the same ID the user scope entry is returned.
func (d *Discovery) ListServers(includeUser bool, includeSystem bool) []manifest.ServerInfo {
	seen := map[string]manifest.ServerInfo{}

	for _, scope := range d.scopes(includeUser, includeSystem) {
		for _, info := range d.loadScope(scope) {
			if _, ok := seen[info.ID]; ok {
				d.logger.Debug("Shadowed by user scope", "id", info.ID, "scope", scope)
				continue
			}
			seen[info.ID] = info
		}
	}

	result := make([]manifest.ServerInfo, 0, len(seen))
	for _, info := range seen {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b manifest.ServerInfo) int {
		return strings.Compare(a.ID, b.ID)
	})

	return result
}

// GetServer returns the manifest of the server with the given ID, checking the user scope first.
// A manifest which cannot be read or parsed is treated as absent in that scope.
func (d *Discovery) GetServer(id string) (manifest.Manifest, manifest.Scope, error) {
	for _, loc := range d.candidates(id) {
		m, err := manifest.Load(loc.ManifestPath)
		if err != nil {
			d.logger.Warn("Skipping unreadable manifest", "id", id, "scope", loc.Scope, "error", err)
			continue
		}
		return m, loc.Scope, nil
	}

	return manifest.Manifest{}, "", fmt.Errorf("%w: %s", dmcperrors.ErrServerNotFound, id)
}

// GetManifestPath returns the manifest location of id, resolved as by Locate.
func (d *Discovery) GetManifestPath(id string) (string, manifest.Scope, error) {
	loc, err := d.Locate(id)
	if err != nil {
		return "", "", err
	}
	return loc.ManifestPath, loc.Scope, nil
}

// Locate resolves the on-disk location of the server with the given ID, checking the user scope first.
// It picks the same scope as GetServer: the first whose manifest can be read. When no scope has a readable
// manifest, the first index entry is returned so that a stale entry can still be uninstalled.
func (d *Discovery) Locate(id string) (Location, error) {
	c := d.candidates(id)
	if len(c) == 0 {
		return Location{}, fmt.Errorf("%w: %s", dmcperrors.ErrServerNotFound, id)
	}

	for _, loc := range c {
		if _, err := manifest.Load(loc.ManifestPath); err == nil {
			return loc, nil
		}
		d.logger.Debug("Manifest unreadable, trying next scope", "id", id, "scope", loc.Scope)
	}

	return c[0], nil
}

// candidates returns the index locations of id, user scope first.
func (d *Discovery) candidates(id string) []Location {
	var out []Location
	for _, scope := range manifest.Scopes() {
		idx, ok := d.readIndex(scope)
		if !ok {
			continue
		}
		entry, ok := idx.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, Location{
			ID:           id,
			Scope:        scope,
			ManifestPath: entry.Location,
			InstallDir:   filepath.Dir(entry.Location),
		})
	}
	return out
}

func (d *Discovery) scopes(includeUser bool, includeSystem bool) []manifest.Scope {
	var s []manifest.Scope
	if includeUser {
		s = append(s, manifest.ScopeUser)
	}
	if includeSystem {
		s = append(s, manifest.ScopeSystem)
	}
	return s
}

// loadScope summarizes every readable server of one scope.
func (d *Discovery) loadScope(scope manifest.Scope) []manifest.ServerInfo {
	idx, ok := d.readIndex(scope)
	if !ok {
		return nil
	}

	logger := d.logger.With("scope", scope)
	logger.Debug("Loaded index", "servers", idx.Len())

	var servers []manifest.ServerInfo
	for _, id := range idx.IDs() {
		entry, _ := idx.Lookup(id)

		m, err := manifest.Load(entry.Location)
		if err != nil {
			logger.Warn("Skipping server with unreadable manifest", "id", id, "location", entry.Location, "error", err)
			continue
		}

		servers = append(servers, manifest.NewServerInfo(id, m, scope, entry.Location))
	}

	return servers
}

// readIndex loads a scope's index. An absent index is an empty scope; a corrupt or unreadable one is skipped.
func (d *Discovery) readIndex(scope manifest.Scope) (*manifest.Index, bool) {
	path := d.paths.IndexFile(scope)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.Trace("No index", "scope", scope, "path", path)
		return manifest.NewIndex(), true
	}
	if err != nil {
		d.logger.Warn("Failed to read index", "scope", scope, "path", path, "error", err)
		return nil, false
	}

	idx, err := manifest.ParseIndex(data)
	if err != nil {
		d.logger.Warn("Failed to parse index", "scope", scope, "path", path, "error", err)
		return nil, false
	}

	return idx, true
}
