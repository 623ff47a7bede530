package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/daemon"
	"github.com/dmcp-project/dmcp/internal/flags"
)

// DefaultServeAddr is the address the local API binds to unless --addr is given.
const DefaultServeAddr = "localhost:8095"

// ServeCmd should be used to represent the 'serve' command.
type ServeCmd struct {
	*internalcmd.BaseCmd
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	opts            cmdopts.CmdOptions
}

// NewServeCmd creates a newly configured (Cobra) command.
func NewServeCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ServeCmd{
		BaseCmd: baseCmd,
		opts:    opts,
	}

	cobraCmd := &cobra.Command{
		Use:   "serve [--addr] [--cors-origin]",
		Short: "Serves the installed servers through a read-only local HTTP API",
		Long:  c.longDescription(),
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	cobraCmd.Flags().StringVar(
		&c.Addr,
		"addr",
		DefaultServeAddr,
		"Address for the API to bind",
	)

	cobraCmd.Flags().StringSliceVar(
		&c.CORSOrigins,
		"cors-origin",
		nil,
		"Origin allowed to call the API from a browser (can be repeated, '*' allows any origin)",
	)

	cobraCmd.Flags().DurationVar(
		&c.ShutdownTimeout,
		"shutdown-timeout",
		daemon.DefaultShutdownTimeout,
		"Time allowed for in-flight requests to finish when stopping",
	)

	return cobraCmd, nil
}

// longDescription returns the long version of the command description.
func (c *ServeCmd) longDescription() string {
	return `Serves the installed servers through a read-only local HTTP API.

  GET /api/v1/servers?scope=all|user|system
  GET /api/v1/servers/{id}
  GET /api/v1/servers/{id}/config

The OpenAPI documentation is served at /docs. Stop with Ctrl+C.`
}

// run is configured (via NewServeCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *ServeCmd) run(cmd *cobra.Command, _ []string) error {
	logger := c.Logger()
	addr := strings.TrimSpace(c.Addr)

	env, err := internalcmd.NewEnvironment(logger, c.opts)
	if err != nil {
		return err
	}

	deps, err := daemon.NewAPIDependencies(logger, env.Discovery, addr)
	if err != nil {
		return fmt.Errorf("error configuring dmcp API: %w", err)
	}

	srv, err := daemon.NewAPIServer(
		deps,
		daemon.WithCORSOrigins(c.CORSOrigins),
		daemon.WithShutdownTimeout(c.ShutdownTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create dmcp API server: %w", err)
	}

	// Create the signal handling context for the application.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	banner := fmt.Sprintf("dmcp API running.\n\n"+
		"  Local API:\thttp://%s/api/v1\n"+
		"  OpenAPI UI:\thttp://%s/docs\n"+
		"  User installs:\t%s\n"+
		"  System installs:\t%s\n",
		addr, addr, env.Paths.UserInstallDir, env.Paths.SystemInstallDir)
	if flags.LogPath != "" {
		banner += fmt.Sprintf("  Log file:\t%s => (%s)\n", flags.LogPath, flags.LogLevel)
	}
	banner += "\nPress Ctrl+C to stop.\n\n"
	_, _ = fmt.Fprint(cmd.OutOrStdout(), banner)

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("API server exited with error", "error", err)
		return err
	}

	logger.Info("Shutting down API server")

	return nil
}
