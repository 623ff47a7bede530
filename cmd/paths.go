package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/printer"
)

// PathsCmd should be used to represent the 'paths' command.
type PathsCmd struct {
	*internalcmd.BaseCmd
	Format  internalcmd.OutputFormat
	opts    cmdopts.CmdOptions
	printer output.Printer[printer.PathsResult]
}

// NewPathsCmd creates a newly configured (Cobra) command.
func NewPathsCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &PathsCmd{
		BaseCmd: baseCmd,
		Format:  internalcmd.FormatText,
		opts:    opts,
		printer: &printer.PathsPrinter{},
	}

	cobraCmd := &cobra.Command{
		Use:   "paths",
		Short: "Shows the resolved paths (for debugging)",
		Long: "Shows the resolved sources files and install directories, " +
			"after environment variables and the settings file are applied",
		Args: cobra.NoArgs,
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

func (c *PathsCmd) run(cmd *cobra.Command, _ []string) error {
	handler, err := internalcmd.FormatHandler(cmd.OutOrStdout(), c.Format, c.printer)
	if err != nil {
		return err
	}

	env, err := internalcmd.NewEnvironment(c.Logger(), c.opts)
	if err != nil {
		return handler.HandleError(err)
	}

	p := env.Paths

	return handler.HandleResult(printer.PathsResult{
		UserSources:       p.UserSources,
		UserInstallDir:    p.UserInstallDir,
		SystemSources:     p.SystemSources,
		SystemInstallDir:  p.SystemInstallDir,
		UserIndexExists:   exists(p.IndexFile(manifest.ScopeUser)),
		SystemIndexExists: exists(p.IndexFile(manifest.ScopeSystem)),
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
