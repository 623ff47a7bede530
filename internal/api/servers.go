package api

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

const (
	ScopeFilterAll    = "all"
	ScopeFilterUser   = "user"
	ScopeFilterSystem = "system"
)

// ServerSummary is the API representation of an installed server in listings.
type ServerSummary struct {
	ID         string `doc:"Server ID (index key)"                  json:"id"`
	Name       string `doc:"Display name"                           json:"name"`
	Version    string `doc:"Installed version"                      json:"version"`
	Transport  string `doc:"Type of the first transport"            json:"transport"`
	Scope      string `doc:"Scope the server is installed in"       json:"scope"`
	InstallDir string `doc:"Directory holding the server's files"   json:"installDir"`
}

// Transport is the API representation of a server transport.
type Transport struct {
	Type        string   `json:"type"`
	Command     string   `json:"command,omitempty"`
	Args        []string `json:"args,omitempty"`
	URL         string   `json:"url,omitempty"`
	WSURL       string   `json:"wsUrl,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ServerDetail is the API representation of one installed server's manifest.
type ServerDetail struct {
	ID           string         `json:"id"`
	Scope        string         `json:"scope"`
	Name         string         `json:"name,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	Version      string         `json:"version,omitempty"`
	Description  string         `json:"description,omitempty"`
	Author       string         `json:"author,omitempty"`
	Homepage     string         `json:"homepage,omitempty"`
	Transports   []Transport    `json:"transports"`
	Config       map[string]any `json:"config"`
	InstallDir   string         `json:"installDir,omitempty"`
	Categories   []string       `json:"categories,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
}

// ServersRequest represents the incoming request for listing installed servers.
type ServersRequest struct {
	Scope string `default:"all" doc:"Scopes to include" enum:"all,user,system" query:"scope"`
}

// ServersResponse represents the wrapped API response for a list of servers.
type ServersResponse struct {
	Body struct {
		Servers []ServerSummary `doc:"Installed servers sorted by ID" json:"servers"`
	}
}

// ServerRequest represents the incoming request for a single server.
type ServerRequest struct {
	ID string `doc:"ID of the installed server" example:"com.example.echo" path:"id"`
}

// ServerResponse represents the wrapped API response for a single server.
type ServerResponse struct {
	Body ServerDetail
}

// ServerConfigResponse represents the wrapped API response for a server's config values.
type ServerConfigResponse struct {
	Body struct {
		Config map[string]any `doc:"Config values of the server" json:"config"`
	}
}

// RegisterServerRoutes sets up the read-only installed server endpoints.
func RegisterServerRoutes(routerAPI huma.API, catalog ServerCatalog, apiPathPrefix string) {
	serversAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Servers"}

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "listServers",
			Method:      http.MethodGet,
			Summary:     "List installed servers",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServersRequest) (*ServersResponse, error) {
			return handleServers(catalog, input.Scope)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "getServer",
			Method:      http.MethodGet,
			Path:        "/{id}",
			Summary:     "Get an installed server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerRequest) (*ServerResponse, error) {
			return handleServer(catalog, input.ID)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "getServerConfig",
			Method:      http.MethodGet,
			Path:        "/{id}/config",
			Summary:     "Get the config values of an installed server",
			Tags:        append(tags, "Config"),
		},
		func(ctx context.Context, input *ServerRequest) (*ServerConfigResponse, error) {
			return handleServerConfig(catalog, input.ID)
		},
	)
}

// handleServers is the handler for listing installed servers.
func handleServers(catalog ServerCatalog, scope string) (*ServersResponse, error) {
	var includeUser, includeSystem bool
	switch scope {
	case "", ScopeFilterAll:
		includeUser, includeSystem = true, true
	case ScopeFilterUser:
		includeUser = true
	case ScopeFilterSystem:
		includeSystem = true
	default:
		return nil, fmt.Errorf("%w: unknown scope filter '%s'", dmcperrors.ErrInvalidInput, scope)
	}

	infos := catalog.ListServers(includeUser, includeSystem)

	resp := &ServersResponse{}
	resp.Body.Servers = make([]ServerSummary, 0, len(infos))
	for _, info := range infos {
		resp.Body.Servers = append(resp.Body.Servers, ServerSummary{
			ID:         info.ID,
			Name:       info.Name,
			Version:    info.Version,
			Transport:  string(info.TransportType),
			Scope:      info.Scope.String(),
			InstallDir: info.InstallDir,
		})
	}

	return resp, nil
}

// handleServer is the handler for retrieving one installed server.
func handleServer(catalog ServerCatalog, id string) (*ServerResponse, error) {
	m, scope, err := catalog.GetServer(id)
	if err != nil {
		return nil, err
	}

	resp := &ServerResponse{}
	resp.Body = toServerDetail(id, m, scope)

	return resp, nil
}

// handleServerConfig is the handler for retrieving one installed server's config values.
func handleServerConfig(catalog ServerCatalog, id string) (*ServerConfigResponse, error) {
	m, _, err := catalog.GetServer(id)
	if err != nil {
		return nil, err
	}

	resp := &ServerConfigResponse{}
	resp.Body.Config = map[string]any{}
	maps.Copy(resp.Body.Config, m.Config)

	return resp, nil
}

func toServerDetail(id string, m manifest.Manifest, scope manifest.Scope) ServerDetail {
	d := ServerDetail{
		ID:           id,
		Scope:        scope.String(),
		Name:         m.Name,
		Summary:      m.Summary,
		Version:      m.Version,
		Description:  m.Description,
		Author:       m.Author,
		Homepage:     m.Homepage,
		Transports:   make([]Transport, 0, len(m.Transports)),
		Config:       map[string]any{},
		InstallDir:   m.InstallDir,
		Categories:   m.Categories,
		Capabilities: m.Capabilities,
	}

	for _, t := range m.Transports {
		d.Transports = append(d.Transports, Transport{
			Type:        string(t.Type),
			Command:     t.Command,
			Args:        t.Args,
			URL:         t.URL,
			WSURL:       t.WSURL,
			Description: t.Description,
		})
	}
	maps.Copy(d.Config, m.Config)

	return d
}
