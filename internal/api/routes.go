package api

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dmcp-project/dmcp/internal/manifest"
)

// APIVersion is the version used in the URL paths.
const APIVersion = "v1"

// ServerCatalog is the read-only view of installed servers served by the API.
type ServerCatalog interface {
	// ListServers returns the installed servers of the requested scopes, sorted by ID.
	ListServers(includeUser bool, includeSystem bool) []manifest.ServerInfo

	// GetServer returns the manifest of an installed server, user scope first.
	GetServer(id string) (manifest.Manifest, manifest.Scope, error)
}

// RegisterRoutes registers all API routes on the provided Huma router.
// This is the single source of truth for the API route structure.
// Returns the API path prefix (e.g., "/api/v1") under which the routes are created.
func RegisterRoutes(router huma.API, catalog ServerCatalog) (string, error) {
	if router == nil || reflect.ValueOf(router).IsNil() {
		return "", fmt.Errorf("router cannot be nil")
	}
	if catalog == nil || reflect.ValueOf(catalog).IsNil() {
		return "", fmt.Errorf("server catalog cannot be nil")
	}

	// Safe way to ensure /api/{version}.
	apiPathPrefix, err := url.JoinPath("/api", APIVersion)
	if err != nil {
		return "", fmt.Errorf("failed to construct API path prefix: %w", err)
	}

	versionedGroup := huma.NewGroup(router, apiPathPrefix)
	RegisterServerRoutes(versionedGroup, catalog, "/servers")

	return apiPathPrefix, nil
}
