package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/go-hclog"

	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/config"
	"github.com/dmcp-project/dmcp/internal/discovery"
	"github.com/dmcp-project/dmcp/internal/flags"
	"github.com/dmcp-project/dmcp/internal/installer"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
	"github.com/dmcp-project/dmcp/internal/privilege"
	"github.com/dmcp-project/dmcp/internal/probe"
	"github.com/dmcp-project/dmcp/internal/registry"
	"github.com/dmcp-project/dmcp/internal/sources"
	"github.com/dmcp-project/dmcp/internal/stage"
	"github.com/dmcp-project/dmcp/internal/store"
)

// ErrRelaunched is returned when a command asked to be relaunched elevated and the relaunch returned control.
// In production the elevated child replaces the current process and this is never seen.
var ErrRelaunched = errors.New("command was relaunched with elevated privileges")

// Environment holds the components a command operates on, built from the loaded settings.
type Environment struct {
	Settings   *config.Settings
	Paths      paths.Paths
	Checker    privilege.Checker
	Store      *store.Store
	Discovery  *discovery.Discovery
	Sources    *sources.Manager
	Registry   *registry.Client
	Engine     *installer.Engine
	Escalator  cmdopts.Escalator
	ToolLister cmdopts.ToolLister
}

// NewEnvironment loads the settings file named by the global flags and wires every component.
// Components supplied through opts are used as-is.
func NewEnvironment(logger hclog.Logger, opts cmdopts.CmdOptions) (*Environment, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.SettingsLoader == nil {
		return nil, fmt.Errorf("settings loader cannot be nil")
	}
	if opts.Checker == nil {
		return nil, fmt.Errorf("privilege checker cannot be nil")
	}

	settings, err := opts.SettingsLoader.Load(flags.SettingsFile)
	if err != nil {
		return nil, err
	}

	p, err := paths.Resolve(settings)
	if err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = privilege.NewBroker(settings.Elevation.Broker, logger)
	}

	committer, err := store.NewCommitter(opts.Checker, runner, logger)
	if err != nil {
		return nil, err
	}

	st, err := store.NewStore(p, committer, logger)
	if err != nil {
		return nil, err
	}

	srcs, err := sources.NewManager(p, committer, logger)
	if err != nil {
		return nil, err
	}

	var regOpts []registry.Option
	if opts.HTTPClient != nil {
		regOpts = append(regOpts, registry.WithHTTPClient(opts.HTTPClient))
	}
	reg, err := registry.NewClient(logger, regOpts...)
	if err != nil {
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = &stage.GitFetcher{Stderr: os.Stderr, Logger: logger.Named("git")}
	}
	stager, err := stage.NewStager(fetcher, "", logger)
	if err != nil {
		return nil, err
	}

	engine, err := installer.NewEngine(installer.Dependencies{
		Logger:   logger,
		Store:    st,
		Registry: reg,
		Stager:   stager,
	})
	if err != nil {
		return nil, err
	}

	escalator := opts.Escalator
	if escalator == nil {
		gw, err := privilege.NewGateway(runner, privilege.WithPreservedEnv(
			paths.EnvVarUserSourcesPath,
			paths.EnvVarUserInstallDir,
			paths.EnvVarSystemSourcesPath,
			paths.EnvVarSystemInstallDir,
			flags.EnvVarSettingsFile,
			flags.EnvVarLogPath,
			flags.EnvVarLogLevel,
		))
		if err != nil {
			return nil, err
		}
		escalator = gw
	}

	lister := opts.ToolLister
	if lister == nil {
		prober, err := probe.NewProber(logger, probe.WithClientInfo("dmcp", Version()))
		if err != nil {
			return nil, err
		}
		lister = prober
	}

	logger.Debug(
		"Resolved paths",
		"userSources", p.UserSources,
		"userInstallDir", p.UserInstallDir,
		"systemSources", p.SystemSources,
		"systemInstallDir", p.SystemInstallDir,
	)

	return &Environment{
		Settings:   settings,
		Paths:      p,
		Checker:    opts.Checker,
		Store:      st,
		Discovery:  engine.Discovery(),
		Sources:    srcs,
		Registry:   reg,
		Engine:     engine,
		Escalator:  escalator,
		ToolLister: lister,
	}, nil
}

// RequireElevation relaunches the command elevated before a system-scope mutation when the process
// is not already privileged. It returns nil when the command may go ahead in this process.
func (e *Environment) RequireElevation(ctx context.Context, scope manifest.Scope) error {
	if !scope.IsSystem() || e.Checker.IsElevated() {
		return nil
	}

	e.Escalator.ReExec(ctx)

	return ErrRelaunched
}

// EscalateOnPermission relaunches the command elevated when err is a permission failure in the system
// scope and the process is not already privileged. Any other err is returned unchanged.
func (e *Environment) EscalateOnPermission(ctx context.Context, scope manifest.Scope, err error) error {
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}
	if !scope.IsSystem() || e.Checker.IsElevated() {
		return err
	}

	e.Escalator.ReExec(ctx)

	return ErrRelaunched
}
