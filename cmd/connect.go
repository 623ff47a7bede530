package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/installer"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

// ConnectCmd should be used to represent the 'connect' command.
type ConnectCmd struct {
	*internalcmd.BaseCmd
	ID      string
	Name    string
	Summary string
	Version string
	Config  []string
	System  bool
	opts    cmdopts.CmdOptions
}

// NewConnectCmd creates a newly configured (Cobra) command.
func NewConnectCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ConnectCmd{
		BaseCmd: baseCmd,
		opts:    opts,
	}

	cobraCmd := &cobra.Command{
		Use:   "connect <url>",
		Short: "Registers a remote MCP server",
		Long:  c.longDescription(),
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	cobraCmd.Flags().StringVar(&c.ID, "id", "", "Server ID (default: from the fetched manifest, otherwise generated)")
	cobraCmd.Flags().StringVar(&c.Name, "name", "", "Display name")
	cobraCmd.Flags().StringVar(&c.Summary, "summary", "", "Short summary")
	cobraCmd.Flags().StringVar(&c.Version, "version", "", "Version")
	cobraCmd.Flags().StringArrayVar(
		&c.Config,
		"config",
		nil,
		"Config value in KEY=VALUE format (can be repeated)",
	)
	cobraCmd.Flags().BoolVar(&c.System, "system", false, "Register in system scope (requires elevation)")

	return cobraCmd, nil
}

// longDescription returns the long version of the command description.
func (c *ConnectCmd) longDescription() string {
	return `Registers a remote MCP server.

The URL is first fetched as a ready-made server manifest. When it is not one, the URL itself is
the endpoint: ws:// and wss:// URLs become a websocket transport, anything else an SSE transport.
Flags override the values of the fetched manifest.`
}

// run is configured (via NewConnectCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *ConnectCmd) run(cmd *cobra.Command, args []string) error {
	url := strings.TrimSpace(args[0])
	if url == "" {
		return fmt.Errorf("url is required and cannot be empty")
	}

	config, err := parseConfigPairs(c.Config)
	if err != nil {
		return err
	}

	logger := c.Logger()

	env, err := internalcmd.NewEnvironment(logger, c.opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	scope := internalcmd.TargetScope(false, c.System, manifest.ScopeUser)

	if err := env.RequireElevation(ctx, scope); err != nil {
		return err
	}

	ov := installer.Overrides{
		ID:      strings.TrimSpace(c.ID),
		Name:    c.Name,
		Summary: c.Summary,
		Version: c.Version,
		Config:  config,
	}

	id, err := env.Engine.Connect(ctx, url, ov, scope)
	if err = env.EscalateOnPermission(ctx, scope, err); err != nil {
		return err
	}

	logger.Debug("Server connected", "id", id, "url", url, "scope", scope)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Connected %s as %s\n", url, id); err != nil {
		return err
	}

	return nil
}

// parseConfigPairs parses KEY=VALUE pairs. A later pair overrides an earlier one with the same key.
func parseConfigPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	config := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: config value '%s' must be in KEY=VALUE format", dmcperrors.ErrInvalidInput, pair)
		}
		config[k] = v
	}

	return config, nil
}
