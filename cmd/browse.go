package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/printer"
	"github.com/dmcp-project/dmcp/internal/registry"
	"github.com/dmcp-project/dmcp/internal/sources"
)

// BrowseCmd should be used to represent the 'browse' command.
type BrowseCmd struct {
	*internalcmd.BaseCmd
	User    bool
	System  bool
	Format  internalcmd.OutputFormat
	opts    cmdopts.CmdOptions
	printer output.Printer[registry.RegistryServer]
}

// NewBrowseCmd creates a newly configured (Cobra) command.
func NewBrowseCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &BrowseCmd{
		BaseCmd: baseCmd,
		Format:  internalcmd.FormatText,
		opts:    opts,
		printer: &printer.RegistryServerPrinter{},
	}

	cobraCmd := &cobra.Command{
		Use:   "browse [url]",
		Short: "Browses the servers offered by the registry sources, or by a specific registry URL",
		Long: "Browses the servers offered by the configured registry sources, or by a specific registry URL. " +
			"Registries which cannot be fetched are reported as warnings",
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}

	cobraCmd.Flags().BoolVar(&c.User, "user", false, "Browse user-scope sources only (ignored when a URL is given)")
	cobraCmd.Flags().BoolVar(&c.System, "system", false, "Browse system-scope sources only (ignored when a URL is given)")

	allowed := internalcmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

func (c *BrowseCmd) run(cmd *cobra.Command, args []string) error {
	handler, err := internalcmd.FormatHandler(cmd.OutOrStdout(), c.Format, c.printer)
	if err != nil {
		return err
	}

	logger := c.Logger()

	env, err := internalcmd.NewEnvironment(logger, c.opts)
	if err != nil {
		return handler.HandleError(err)
	}

	ctx := cmd.Context()

	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		servers, err := env.Registry.List(ctx, strings.TrimSpace(args[0]))
		if err != nil {
			return handler.HandleError(err)
		}
		return handler.HandleResults(servers...)
	}

	urls := sources.URLs(env.Sources.List(internalcmd.ScopeFilter(c.User, c.System)))
	if len(urls) == 0 && (c.Format == internalcmd.FormatText || c.Format == "") {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No registry sources configured. Add one with: dmcp sources add <url>")
		return err
	}

	servers, errs := env.Registry.Browse(ctx, urls)
	for _, e := range errs {
		logger.Warn("Registry source unavailable", "error", e)
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", e)
	}

	return handler.HandleResults(servers...)
}
