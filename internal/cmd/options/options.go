// Package options configures the dependencies injected into dmcp commands.
package options

import (
	"context"
	"net/http"

	"github.com/dmcp-project/dmcp/internal/config"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/privilege"
	"github.com/dmcp-project/dmcp/internal/probe"
	"github.com/dmcp-project/dmcp/internal/stage"
)

// Escalator relaunches the current command line with elevated privileges.
// In production ReExec never returns.
type Escalator interface {
	ReExec(ctx context.Context)
}

// ToolLister lists the tools offered by an installed server.
type ToolLister interface {
	Tools(ctx context.Context, m manifest.Manifest) ([]probe.Tool, error)
}

type CmdOption func(*CmdOptions) error

// CmdOptions holds the dependencies of a command.
// Nil fields are built from the loaded settings when the command runs.
type CmdOptions struct {
	SettingsLoader config.Loader
	Checker        privilege.Checker
	Runner         privilege.Runner
	Escalator      Escalator
	Fetcher        stage.Fetcher
	ToolLister     ToolLister
	HTTPClient     *http.Client
}

func defaultOptions() CmdOptions {
	return CmdOptions{
		SettingsLoader: &config.DefaultLoader{},
		Checker:        privilege.EffectiveUser{},
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithSettingsLoader(l config.Loader) CmdOption {
	return func(o *CmdOptions) error {
		o.SettingsLoader = l
		return nil
	}
}

// WithChecker overrides how elevation is detected.
func WithChecker(c privilege.Checker) CmdOption {
	return func(o *CmdOptions) error {
		o.Checker = c
		return nil
	}
}

// WithRunner overrides the runner used for elevated file operations (default: the configured broker).
func WithRunner(r privilege.Runner) CmdOption {
	return func(o *CmdOptions) error {
		o.Runner = r
		return nil
	}
}

// WithEscalator overrides how commands relaunch themselves elevated.
func WithEscalator(e Escalator) CmdOption {
	return func(o *CmdOptions) error {
		o.Escalator = e
		return nil
	}
}

// WithFetcher overrides how stdio server sources are fetched (default: git).
func WithFetcher(f stage.Fetcher) CmdOption {
	return func(o *CmdOptions) error {
		o.Fetcher = f
		return nil
	}
}

func WithToolLister(l ToolLister) CmdOption {
	return func(o *CmdOptions) error {
		o.ToolLister = l
		return nil
	}
}

// WithHTTPClient overrides the HTTP client used to reach registries.
func WithHTTPClient(c *http.Client) CmdOption {
	return func(o *CmdOptions) error {
		o.HTTPClient = c
		return nil
	}
}
