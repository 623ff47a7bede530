package sources

import (
	"fmt"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/printer"
	"github.com/dmcp-project/dmcp/internal/sources"
)

type ListCmd struct {
	*internalcmd.BaseCmd
	User          bool
	System        bool
	Format        internalcmd.OutputFormat
	opts          cmdopts.CmdOptions
	sourcePrinter output.Printer[sources.Source]
}

func NewListCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd:       baseCmd,
		Format:        internalcmd.FormatText,
		opts:          opts,
		sourcePrinter: printer.NewSourcePrinter(),
	}

	cobraCmd := &cobra.Command{
		Use:   "list [--user|--system]",
		Short: "Lists registry source URLs",
		Long:  "Lists registry source URLs, user sources first",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	cobraCmd.Flags().BoolVar(&c.User, "user", false, "Show user-scope sources only")
	cobraCmd.Flags().BoolVar(&c.System, "system", false, "Show system-scope sources only")

	allowed := internalcmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

func (c *ListCmd) run(cmd *cobra.Command, _ []string) error {
	handler, err := internalcmd.FormatHandler(cmd.OutOrStdout(), c.Format, c.sourcePrinter)
	if err != nil {
		return err
	}

	env, err := internalcmd.NewEnvironment(c.Logger(), c.opts)
	if err != nil {
		return handler.HandleError(err)
	}

	return handler.HandleResults(env.Sources.List(internalcmd.ScopeFilter(c.User, c.System))...)
}
