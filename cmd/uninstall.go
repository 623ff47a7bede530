package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
)

// UninstallCmd should be used to represent the 'uninstall' command.
type UninstallCmd struct {
	*internalcmd.BaseCmd
	opts cmdopts.CmdOptions
}

// NewUninstallCmd creates a newly configured (Cobra) command.
func NewUninstallCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &UninstallCmd{
		BaseCmd: baseCmd,
		opts:    opts,
	}

	cobraCmd := &cobra.Command{
		Use:   "uninstall <id>",
		Short: "Uninstalls an MCP server",
		Long: "Removes the server's install directory and index entry from the scope it is found in, " +
			"user scope first",
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	return cobraCmd, nil
}

// run is configured (via NewUninstallCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *UninstallCmd) run(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	if id == "" {
		return fmt.Errorf("server id is required and cannot be empty")
	}

	logger := c.Logger()

	env, err := internalcmd.NewEnvironment(logger, c.opts)
	if err != nil {
		return err
	}

	loc, err := env.Discovery.Locate(id)
	if err != nil {
		return err
	}

	err = env.Engine.Uninstall(cmd.Context(), id)
	if err = env.EscalateOnPermission(cmd.Context(), loc.Scope, err); err != nil {
		return err
	}

	logger.Debug("Server uninstalled", "id", id, "scope", loc.Scope)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", id); err != nil {
		return err
	}

	return nil
}
