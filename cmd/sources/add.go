package sources

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

type AddCmd struct {
	*internalcmd.BaseCmd
	User   bool
	System bool
	opts   cmdopts.CmdOptions
}

func NewAddCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &AddCmd{
		BaseCmd: baseCmd,
		opts:    opts,
	}

	cobraCmd := &cobra.Command{
		Use:   "add <url> [--user|--system]",
		Short: "Adds a registry source URL",
		Long:  "Adds a registry source URL to the user (default) or system sources file",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	cobraCmd.Flags().BoolVar(&c.User, "user", false, "Add to user scope (default)")
	cobraCmd.Flags().BoolVar(&c.System, "system", false, "Add to system scope (requires elevation)")
	cobraCmd.MarkFlagsMutuallyExclusive("user", "system")

	return cobraCmd, nil
}

func (c *AddCmd) run(cmd *cobra.Command, args []string) error {
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

	err = env.Sources.Add(ctx, scope, url)
	if err = env.EscalateOnPermission(ctx, scope, err); err != nil {
		return err
	}

	logger.Debug("Source added", "url", url, "scope", scope)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", url); err != nil {
		return err
	}

	return nil
}
