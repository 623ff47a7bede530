package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/printer"
)

// ListCmd should be used to represent the 'list' command.
type ListCmd struct {
	*internalcmd.BaseCmd
	User    bool
	System  bool
	Format  internalcmd.OutputFormat
	opts    cmdopts.CmdOptions
	printer output.Printer[manifest.ServerInfo]
}

// NewListCmd creates a newly configured (Cobra) command.
func NewListCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd: baseCmd,
		Format:  internalcmd.FormatText,
		opts:    opts,
		printer: &printer.ServerListPrinter{},
	}

	cobraCmd := &cobra.Command{
		Use:   "list [--user|--system]",
		Short: "Lists installed MCP servers (default: both user and system)",
		Long: "Lists installed MCP servers, sorted by ID. " +
			"A server installed in both scopes is listed once, from the user scope",
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	cobraCmd.Flags().BoolVar(&c.User, "user", false, "Include user-scope servers only")
	cobraCmd.Flags().BoolVar(&c.System, "system", false, "Include system-scope servers only")

	allowed := internalcmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

func (c *ListCmd) run(cmd *cobra.Command, _ []string) error {
	handler, err := internalcmd.FormatHandler(cmd.OutOrStdout(), c.Format, c.printer)
	if err != nil {
		return err
	}

	env, err := internalcmd.NewEnvironment(c.Logger(), c.opts)
	if err != nil {
		return handler.HandleError(err)
	}

	servers := env.Discovery.ListServers(internalcmd.ScopeFilter(c.User, c.System))

	return handler.HandleResults(servers...)
}
