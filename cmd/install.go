package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/installer"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
	"github.com/dmcp-project/dmcp/internal/sources"
)

// InstallCmd should be used to represent the 'install' command.
type InstallCmd struct {
	*internalcmd.BaseCmd
	User   bool
	System bool
	opts   cmdopts.CmdOptions
}

// NewInstallCmd creates a newly configured (Cobra) command.
func NewInstallCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InstallCmd{
		BaseCmd: baseCmd,
		opts:    opts,
	}

	cobraCmd := &cobra.Command{
		Use:   "install <id> [--user|--system]",
		Short: "Installs an MCP server from the configured registry sources",
		Long:  c.longDescription(),
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	cobraCmd.Flags().BoolVar(&c.User, "user", false, "Install to user scope")
	cobraCmd.Flags().BoolVar(&c.System, "system", false, "Install to system scope (requires elevation)")
	cobraCmd.MarkFlagsMutuallyExclusive("user", "system")

	return cobraCmd, nil
}

// longDescription returns the long version of the command description.
func (c *InstallCmd) longDescription() string {
	return `Installs an MCP server from the configured registry sources, user sources first.

Without --user or --system the registry entry's 'scope' field picks the scope (user by default).
Stdio servers have their files fetched from the entry's source and copied into the install directory;
remote servers only get a manifest. Installing into the system scope relaunches dmcp elevated.`
}

// run is configured (via NewInstallCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *InstallCmd) run(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	if err := paths.ValidateID(id); err != nil {
		return err
	}

	logger := c.Logger()

	env, err := internalcmd.NewEnvironment(logger, c.opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	urls := sources.URLs(env.Sources.List(true, true))

	descriptor, skipped, err := env.Registry.Search(ctx, urls, id)
	for _, s := range skipped {
		logger.Warn("Registry source unavailable", "error", s)
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", s)
	}
	if err != nil {
		return err
	}

	var scope manifest.Scope
	if c.User || c.System {
		scope = internalcmd.TargetScope(c.User, c.System, manifest.ScopeUser)
	} else {
		scope = installer.ScopeFromDescriptor(descriptor)
	}

	if err := env.RequireElevation(ctx, scope); err != nil {
		return err
	}

	err = env.Engine.Install(ctx, id, scope, descriptor)
	if err = env.EscalateOnPermission(ctx, scope, err); err != nil {
		return err
	}

	logger.Debug("Server installed", "id", id, "scope", scope)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Installed %s\n", id); err != nil {
		return err
	}

	return nil
}
