package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/printer"
)

// ToolsCmd should be used to represent the 'tools' command.
type ToolsCmd struct {
	*internalcmd.BaseCmd
	Format  internalcmd.OutputFormat
	opts    cmdopts.CmdOptions
	printer output.Printer[printer.ToolsListResult]
}

// NewToolsCmd creates a newly configured (Cobra) command.
func NewToolsCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ToolsCmd{
		BaseCmd: baseCmd,
		Format:  internalcmd.FormatText,
		opts:    opts,
		printer: &printer.ToolsListPrinter{},
	}

	cobraCmd := &cobra.Command{
		Use:   "tools <id>",
		Short: "Lists the tools offered by an installed server",
		Long: "Starts (stdio) or connects to (sse) an installed server, " +
			"initializes an MCP session and lists the tools it offers",
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	allowed := internalcmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

func (c *ToolsCmd) run(cmd *cobra.Command, args []string) error {
	handler, err := internalcmd.FormatHandler(cmd.OutOrStdout(), c.Format, c.printer)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(args[0])
	if id == "" {
		return handler.HandleError(fmt.Errorf("server id is required and cannot be empty"))
	}

	env, err := internalcmd.NewEnvironment(c.Logger(), c.opts)
	if err != nil {
		return handler.HandleError(err)
	}

	m, _, err := env.Discovery.GetServer(id)
	if err != nil {
		return handler.HandleError(err)
	}

	tools, err := env.ToolLister.Tools(cmd.Context(), m)
	if err != nil {
		return handler.HandleError(err)
	}

	return handler.HandleResult(printer.ToolsListResult{
		Server: id,
		Tools:  tools,
		Count:  len(tools),
	})
}
