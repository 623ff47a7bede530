package sources

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

type RemoveCmd struct {
	*internalcmd.BaseCmd
	User   bool
	System bool
	opts   cmdopts.CmdOptions
}

func NewRemoveCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &RemoveCmd{
		BaseCmd: baseCmd,
		opts:    opts,
	}

	cobraCmd := &cobra.Command{
		Use:   "remove <url> [--user|--system]",
		Short: "Removes a registry source URL",
		Long:  "Removes a registry source URL from the user (default) or system sources file",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	cobraCmd.Flags().BoolVar(&c.User, "user", false, "Remove from user scope (default)")
	cobraCmd.Flags().BoolVar(&c.System, "system", false, "Remove from system scope (requires elevation)")
	cobraCmd.MarkFlagsMutuallyExclusive("user", "system")

	return cobraCmd, nil
}

func (c *RemoveCmd) run(cmd *cobra.Command, args []string) error {
	url := strings.TrimSpace(args[0])
	if url == "" {
		return fmt.Errorf("url is required and cannot be empty")
	}

	logger := c.Logger()

	env, err := internalcmd.NewEnvironment(logger, c.opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	scope := internalcmd.TargetScope(c.User, c.System, manifest.ScopeUser)

	if err := env.RequireElevation(ctx, scope); err != nil {
		return err
	}

	err = env.Sources.Remove(ctx, scope, url)
	if err = env.EscalateOnPermission(ctx, scope, err); err != nil {
		return err
	}

	logger.Debug("Source removed", "url", url, "scope", scope)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", url); err != nil {
		return err
	}

	return nil
}
