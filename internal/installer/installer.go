// Package installer implements the mutations of installed server state: install, uninstall,
// configuration changes and connecting remote servers.
//
// Every mutation is strict: the first failure aborts the operation and is returned to the caller.
// Writes to the system scope go through the store's commit path, which uses the elevation broker
// when the process is not already privileged.
package installer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-hclog"

	"github.com/dmcp-project/dmcp/internal/discovery"
	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
	"github.com/dmcp-project/dmcp/internal/perms"
	"github.com/dmcp-project/dmcp/internal/sources"
	"github.com/dmcp-project/dmcp/internal/store"
)

// Engine applies mutations to installed server state.
// NewEngine should be used to create instances of Engine.
type Engine struct {
	logger    hclog.Logger
	store     *store.Store
	discovery *discovery.Discovery
	registry  RegistryClient
	stager    Stager
}

// NewEngine creates an Engine from validated dependencies.
func NewEngine(deps Dependencies) (*Engine, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid installer dependencies: %w", err)
	}

	logger := deps.Logger.Named("installer")

	return &Engine{
		logger:    logger,
		store:     deps.Store,
		discovery: discovery.NewDiscovery(deps.Store.Paths(), deps.Logger),
		registry:  deps.Registry,
		stager:    deps.Stager,
	}, nil
}

// Discovery returns the read side of the engine's installed state.
func (e *Engine) Discovery() *discovery.Discovery {
	return e.discovery
}

// Install installs the server id into scope.
// When descriptor is nil it is looked up in the configured registry sources, user sources first.
// Stdio servers have their files fetched and staged into the install directory; remote servers
// only get a manifest.
func (e *Engine) Install(ctx context.Context, id string, scope manifest.Scope, descriptor *manifest.Document) error {
	if err := paths.ValidateID(id); err != nil {
		return err
	}

	logger := e.logger.With("id", id, "scope", scope)

	if descriptor == nil {
		urls := sources.URLs(sources.List(e.store.Paths(), true, true))
		logger.Debug("Resolving descriptor from registry sources", "sources", len(urls))

		d, err := e.registry.FindServer(ctx, urls, id)
		if err != nil {
			return err
		}
		descriptor = d
	}

	if err := manifest.ValidateDescriptor(descriptor); err != nil {
		return err
	}

	transports, err := descriptor.Transports()
	if err != nil {
		return err
	}

	p := e.store.Paths()
	installDir := p.ServerDir(scope, id)
	manifestPath := p.ManifestFile(scope, id)

	e.logVersionChange(logger, manifestPath, descriptor.String(manifest.KeyVersion))

	if err := makeInstallDir(installDir); err != nil {
		return err
	}

	if transports[0].Type == manifest.TransportStdio {
		src, ok, err := descriptor.Source()
		if err != nil {
			return err
		}
		if !ok || strings.TrimSpace(src.URL) == "" {
			return fmt.Errorf("%w: stdio server '%s' has no source url", dmcperrors.ErrInvalidInput, id)
		}

		logger.Info("Staging server files", "source", src.URL, "dir", installDir)
		if err := e.stager.Stage(ctx, src, installDir); err != nil {
			return err
		}
	}

	if err := e.commit(ctx, scope, id, descriptor.Clone()); err != nil {
		return err
	}

	logger.Info("Installed server", "transport", transports[0].Type, "dir", installDir)

	return nil
}

// ScopeFromDescriptor returns the scope a descriptor asks to be installed into.
// Descriptors without a recognizable scope field install into the user scope.
func ScopeFromDescriptor(doc *manifest.Document) manifest.Scope {
	if doc == nil {
		return manifest.ScopeUser
	}

	scope, err := manifest.ParseScope(doc.String(manifest.KeyScope))
	if err != nil {
		return manifest.ScopeUser
	}

	return scope
}

// commit writes the manifest for id (with its install directory, config object and id synchronized)
// and records it in the scope's index.
func (e *Engine) commit(ctx context.Context, scope manifest.Scope, id string, doc *manifest.Document) error {
	p := e.store.Paths()
	manifestPath := p.ManifestFile(scope, id)

	if err := doc.SetInstallDir(p.ServerDir(scope, id)); err != nil {
		return fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}
	if err := doc.EnsureConfig(); err != nil {
		return err
	}
	if err := doc.SetID(id); err != nil {
		return fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}

	if err := e.store.WriteManifest(ctx, scope, manifestPath, doc); err != nil {
		return err
	}

	return e.store.UpdateIndex(ctx, scope, func(idx *manifest.Index) error {
		return idx.Put(id, manifestPath)
	})
}

// logVersionChange reports how an install replaces an existing manifest at path, if any.
func (e *Engine) logVersionChange(logger hclog.Logger, path string, next string) {
	prev, err := manifest.Load(path)
	if err != nil {
		return
	}

	switch compareVersions(prev.Version, next) {
	case -1:
		logger.Info("Upgrading server", "from", prev.Version, "to", next)
	case 1:
		logger.Info("Downgrading server", "from", prev.Version, "to", next)
	default:
		logger.Info("Reinstalling server", "version", next)
	}
}

// compareVersions compares two versions semantically when both parse, and as strings otherwise.
func compareVersions(a string, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}

	return strings.Compare(a, b)
}

func makeInstallDir(dir string) error {
	// fs.ErrPermission stays in the chain so the command layer can relaunch elevated.
	if err := os.MkdirAll(dir, perms.RegularDir); err != nil {
		return fmt.Errorf("%w: failed to create install directory %s: %w", dmcperrors.ErrIO, dir, err)
	}
	return nil
}
