// Package cmd holds the dmcp command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dmcp-project/dmcp/cmd/sources"
	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/flags"
)

// Execute runs the root command, the returned error should be reported to the user with a non-zero exit status.
func Execute() error {
	base := &internalcmd.BaseCmd{}
	defer func() {
		_ = base.Close()
	}()

	rootCmd, err := NewRootCmd(base)
	if err != nil {
		return err
	}

	return rootCmd.Execute()
}

// NewRootCmd creates the root command with every dmcp command attached.
func NewRootCmd(c *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:           "dmcp <command> [args]",
		Short:         "MCP Manager - discover, manage, and invoke MCP servers",
		Long:          longDescription(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       internalcmd.Version(),
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	fns := []func(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error){
		NewListCmd,
		NewInfoCmd,
		NewConfigCmd,
		sources.NewCmd,
		NewInstallCmd,
		NewUninstallCmd,
		NewConnectCmd,
		NewBrowseCmd,
		NewPathsCmd,
		NewToolsCmd,
		NewServeCmd,
	}

	for _, fn := range fns {
		tempCmd, err := fn(c, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(tempCmd)
	}

	return rootCmd, nil
}

func longDescription() string {
	return `dmcp installs MCP servers from registry sources into a user or system scope,
keeps track of them in a per-scope index and lets you inspect, configure and probe them.

Writes to the system scope are performed with elevated privileges through the configured
broker (pkexec by default).`
}
