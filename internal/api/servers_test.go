package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

// mockCatalog serves a fixed set of servers.
type mockCatalog struct {
	servers   []manifest.ServerInfo
	manifests map[string]manifest.Manifest
	// listed records the scope flags of the last ListServers call.
	listed [2]bool
}

func (m *mockCatalog) ListServers(includeUser bool, includeSystem bool) []manifest.ServerInfo {
	m.listed = [2]bool{includeUser, includeSystem}

	var out []manifest.ServerInfo
	for _, s := range m.servers {
		if (s.Scope == manifest.ScopeUser && includeUser) || (s.Scope == manifest.ScopeSystem && includeSystem) {
			out = append(out, s)
		}
	}
	return out
}

func (m *mockCatalog) GetServer(id string) (manifest.Manifest, manifest.Scope, error) {
	mf, ok := m.manifests[id]
	if !ok {
		return manifest.Manifest{}, "", fmt.Errorf("%w: %s", dmcperrors.ErrServerNotFound, id)
	}
	return mf, manifest.ScopeSystem, nil
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		servers: []manifest.ServerInfo{
			{
				ID:            "com.example.echo",
				Name:          "Echo",
				Version:       "1.0.0",
				TransportType: manifest.TransportStdio,
				Scope:         manifest.ScopeUser,
				InstallDir:    "/home/u/.local/share/mcp/installed/com.example.echo",
			},
			{
				ID:            "com.example.remote",
				Name:          "Remote",
				Version:       "?",
				TransportType: manifest.TransportSSE,
				Scope:         manifest.ScopeSystem,
				InstallDir:    "/usr/share/mcp/installed/com.example.remote",
			},
		},
		manifests: map[string]manifest.Manifest{
			"com.example.remote": {
				ID:         "stale",
				Name:       "Remote",
				Transports: []manifest.Transport{manifest.NewSSETransport("https://h/sse")},
				Config:     map[string]any{"token": "abc"},
				InstallDir: "/usr/share/mcp/installed/com.example.remote",
			},
		},
	}
}

func TestHandleServers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		scope   string
		wantIDs []string
		flags   [2]bool
	}{
		{name: "default", scope: "", wantIDs: []string{"com.example.echo", "com.example.remote"}, flags: [2]bool{true, true}},
		{name: "all", scope: "all", wantIDs: []string{"com.example.echo", "com.example.remote"}, flags: [2]bool{true, true}},
		{name: "user", scope: "user", wantIDs: []string{"com.example.echo"}, flags: [2]bool{true, false}},
		{name: "system", scope: "system", wantIDs: []string{"com.example.remote"}, flags: [2]bool{false, true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			catalog := newMockCatalog()
			resp, err := handleServers(catalog, tc.scope)
			require.NoError(t, err)
			require.Equal(t, tc.flags, catalog.listed)

			var ids []string
			for _, s := range resp.Body.Servers {
				ids = append(ids, s.ID)
			}
			require.Equal(t, tc.wantIDs, ids)
		})
	}

	_, err := handleServers(newMockCatalog(), "global")
	require.ErrorIs(t, err, dmcperrors.ErrInvalidInput)
}

func TestHandleServer(t *testing.T) {
	t.Parallel()

	resp, err := handleServer(newMockCatalog(), "com.example.remote")
	require.NoError(t, err)
	require.Equal(t, "com.example.remote", resp.Body.ID)
	require.Equal(t, "system", resp.Body.Scope)
	require.Equal(t, []Transport{{Type: "sse", URL: "https://h/sse"}}, resp.Body.Transports)

	_, err = handleServer(newMockCatalog(), "com.example.none")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)
}

func TestHandleServerConfig(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	resp, err := handleServerConfig(catalog, "com.example.remote")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"token": "abc"}, resp.Body.Config)

	// The response owns its map.
	resp.Body.Config["token"] = "changed"
	require.Equal(t, "abc", catalog.manifests["com.example.remote"].Config["token"])

	_, err = handleServerConfig(catalog, "com.example.none")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	_, testAPI := humatest.New(t)
	prefix, err := RegisterRoutes(testAPI, newMockCatalog())
	require.NoError(t, err)
	require.Equal(t, "/api/v1", prefix)

	resp := testAPI.Get("/api/v1/servers?scope=user")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Servers []ServerSummary `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Servers, 1)
	require.Equal(t, "stdio", body.Servers[0].Transport)

	resp = testAPI.Get("/api/v1/servers?scope=global")
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = testAPI.Get("/api/v1/servers/com.example.remote/config")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"config": {"token": "abc"}}`, stripSchema(t, resp.Body.Bytes()))
}

func TestRegisterRoutes_NilArguments(t *testing.T) {
	t.Parallel()

	_, err := RegisterRoutes(nil, newMockCatalog())
	require.Error(t, err)

	_, testAPI := humatest.New(t)
	var catalog *mockCatalog
	_, err = RegisterRoutes(testAPI, catalog)
	require.Error(t, err)
}

// stripSchema removes the $schema link huma adds to response bodies.
func stripSchema(t *testing.T, data []byte) string {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	delete(m, "$schema")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
