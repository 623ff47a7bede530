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

// InfoCmd should be used to represent the 'info' command.
type InfoCmd struct {
	*internalcmd.BaseCmd
	Format  internalcmd.OutputFormat
	opts    cmdopts.CmdOptions
	printer output.Printer[printer.ServerDetail]
}

// NewInfoCmd creates a newly configured (Cobra) command.
func NewInfoCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InfoCmd{
		BaseCmd: baseCmd,
		Format:  internalcmd.FormatText,
		opts:    opts,
		printer: &printer.ServerDetailPrinter{},
	}

	cobraCmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Shows detailed info for an installed server",
		Long:  "Shows every known manifest field of an installed server, user scope first",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}

	allowed := internalcmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

func (c *InfoCmd) run(cmd *cobra.Command, args []string) error {
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

	m, scope, err := env.Discovery.GetServer(id)
	if err != nil {
		return handler.HandleError(err)
	}

	return handler.HandleResult(printer.ServerDetail{ID: id, Scope: scope, Manifest: m})
}
