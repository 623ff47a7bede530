package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
)

func testPaths(t *testing.T) paths.Paths {
	t.Helper()

	root := t.TempDir()
	return paths.Paths{
		UserSources:      filepath.Join(root, "user", "sources.list"),
		UserInstallDir:   filepath.Join(root, "user", "installed"),
		SystemSources:    filepath.Join(root, "system", "sources.list"),
		SystemInstallDir: filepath.Join(root, "system", "installed"),
	}
}

// install writes a manifest for id into scope and records it in the scope's index.
func install(t *testing.T, p paths.Paths, scope manifest.Scope, id string, body map[string]any) string {
	t.Helper()

	path := p.ManifestFile(scope, id)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	index := manifest.NewIndex()
	if existing, err := os.ReadFile(p.IndexFile(scope)); err == nil {
		index, err = manifest.ParseIndex(existing)
		require.NoError(t, err)
	}
	require.NoError(t, index.Put(id, path))
	out, err := index.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.IndexFile(scope), out, 0o644))

	return path
}

func sseServer(name string, version string) map[string]any {
	return map[string]any{
		"name":       name,
		"version":    version,
		"transports": []any{map[string]any{"type": "sse", "url": "https://h/sse"}},
	}
}

func TestListServers_PrecedenceLaw(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	install(t, p, manifest.ScopeSystem, "com.example.shared", sseServer("System Echo", "1.0.0"))
	install(t, p, manifest.ScopeSystem, "com.example.sysonly", sseServer("Sys Only", "0.1.0"))

	d := NewDiscovery(p, hclog.NewNullLogger())

	servers := d.ListServers(true, true)
	require.Len(t, servers, 2)
	require.Equal(t, "com.example.shared", servers[0].ID)
	require.Equal(t, "System Echo", servers[0].Name)
	require.Equal(t, manifest.ScopeSystem, servers[0].Scope)

	install(t, p, manifest.ScopeUser, "com.example.shared", sseServer("User Echo", "2.0.0"))

	servers = d.ListServers(true, true)
	require.Len(t, servers, 2)
	require.Equal(t, manifest.ServerInfo{
		ID:            "com.example.shared",
		Name:          "User Echo",
		Version:       "2.0.0",
		TransportType: manifest.TransportSSE,
		Scope:         manifest.ScopeUser,
		InstallDir:    p.ServerDir(manifest.ScopeUser, "com.example.shared"),
	}, servers[0])
	require.Equal(t, "com.example.sysonly", servers[1].ID)

	m, scope, err := d.GetServer("com.example.shared")
	require.NoError(t, err)
	require.Equal(t, manifest.ScopeUser, scope)
	require.Equal(t, "User Echo", m.Name)

	// Only the system scope requested.
	servers = d.ListServers(false, true)
	require.Len(t, servers, 2)
	require.Equal(t, "System Echo", servers[0].Name)
}

func TestListServers_AbsentIndex(t *testing.T) {
	t.Parallel()

	d := NewDiscovery(testPaths(t), nil)

	require.Empty(t, d.ListServers(true, true))
	require.Empty(t, d.ListServers(true, false))
	require.Empty(t, d.ListServers(false, false))
}

func TestListServers_CorruptIndexIsolated(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	install(t, p, manifest.ScopeSystem, "com.example.sys", sseServer("Sys", "1"))
	require.NoError(t, os.MkdirAll(p.UserInstallDir, 0o755))
	require.NoError(t, os.WriteFile(p.IndexFile(manifest.ScopeUser), []byte(`{"servers": nope`), 0o644))

	d := NewDiscovery(p, nil)

	servers := d.ListServers(true, true)
	require.Len(t, servers, 1)
	require.Equal(t, "com.example.sys", servers[0].ID)
	require.Equal(t, manifest.ScopeSystem, servers[0].Scope)

	_, scope, err := d.GetServer("com.example.sys")
	require.NoError(t, err)
	require.Equal(t, manifest.ScopeSystem, scope)
}

func TestListServers_BadManifestSkipped(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	install(t, p, manifest.ScopeUser, "com.a", sseServer("A", "1"))
	badPath := install(t, p, manifest.ScopeUser, "com.bad", sseServer("Bad", "1"))
	missingPath := install(t, p, manifest.ScopeUser, "com.missing", sseServer("Missing", "1"))
	install(t, p, manifest.ScopeUser, "com.unknown-transport", map[string]any{
		"transports": []any{map[string]any{"type": "smoke-signal"}},
	})
	install(t, p, manifest.ScopeUser, "com.z", map[string]any{})

	require.NoError(t, os.WriteFile(badPath, []byte(`not json`), 0o644))
	require.NoError(t, os.Remove(missingPath))

	d := NewDiscovery(p, nil)
	servers := d.ListServers(true, true)

	require.Len(t, servers, 2)
	require.Equal(t, "com.a", servers[0].ID)
	require.Equal(t, manifest.ServerInfo{
		ID:            "com.z",
		Name:          manifest.DefaultName,
		Version:       manifest.DefaultVersion,
		TransportType: manifest.TransportUnknown,
		Scope:         manifest.ScopeUser,
		InstallDir:    p.ServerDir(manifest.ScopeUser, "com.z"),
	}, servers[1])
}

func TestListServers_IndexKeyIsCanonical(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	body := sseServer("A", "1")
	body["id"] = "stale.id"
	install(t, p, manifest.ScopeUser, "com.canonical", body)

	servers := NewDiscovery(p, nil).ListServers(true, true)
	require.Len(t, servers, 1)
	require.Equal(t, "com.canonical", servers[0].ID)
}

func TestListServers_Sorted(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	for i := 5; i > 0; i-- {
		install(t, p, manifest.ScopeUser, fmt.Sprintf("com.s%d", i), sseServer("S", "1"))
	}
	install(t, p, manifest.ScopeSystem, "com.s0", sseServer("S", "1"))

	var ids []string
	for _, s := range NewDiscovery(p, nil).ListServers(true, true) {
		ids = append(ids, s.ID)
	}
	require.Equal(t, []string{"com.s0", "com.s1", "com.s2", "com.s3", "com.s4", "com.s5"}, ids)
}

func TestGetServer_NotFound(t *testing.T) {
	t.Parallel()

	d := NewDiscovery(testPaths(t), nil)

	_, _, err := d.GetServer("com.none")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)

	_, _, err = d.GetManifestPath("com.none")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)

	_, err = d.Locate("com.none")
	require.ErrorIs(t, err, dmcperrors.ErrNotFound)
}

func TestGetServer_FallsBackWhenUserManifestUnreadable(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	userPath := install(t, p, manifest.ScopeUser, "com.a", sseServer("User", "1"))
	install(t, p, manifest.ScopeSystem, "com.a", sseServer("System", "1"))
	require.NoError(t, os.Remove(userPath))

	d := NewDiscovery(p, nil)

	m, scope, err := d.GetServer("com.a")
	require.NoError(t, err)
	require.Equal(t, manifest.ScopeSystem, scope)
	require.Equal(t, "System", m.Name)

	path, scope, err := d.GetManifestPath("com.a")
	require.NoError(t, err)
	require.Equal(t, manifest.ScopeSystem, scope)
	require.Equal(t, p.ServerDir(manifest.ScopeSystem, "com.a"), filepath.Dir(path))

	loc, err := d.Locate("com.a")
	require.NoError(t, err)
	require.Equal(t, manifest.ScopeSystem, loc.Scope)
}

func TestLocate_StaleEntryWithoutReadableManifest(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	userPath := install(t, p, manifest.ScopeUser, "com.a", sseServer("User", "1"))
	require.NoError(t, os.Remove(userPath))

	d := NewDiscovery(p, nil)

	_, _, err := d.GetServer("com.a")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)

	loc, err := d.Locate("com.a")
	require.NoError(t, err)
	require.Equal(t, manifest.ScopeUser, loc.Scope)
	require.Equal(t, userPath, loc.ManifestPath)
}

func TestLocate(t *testing.T) {
	t.Parallel()

	p := testPaths(t)
	path := install(t, p, manifest.ScopeSystem, "com.a", sseServer("A", "1"))

	loc, err := NewDiscovery(p, nil).Locate("com.a")
	require.NoError(t, err)
	require.Equal(t, Location{
		ID:           "com.a",
		Scope:        manifest.ScopeSystem,
		ManifestPath: path,
		InstallDir:   p.ServerDir(manifest.ScopeSystem, "com.a"),
	}, loc)
}
