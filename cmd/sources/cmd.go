// Package sources holds the 'dmcp sources' commands which manage registry source URLs.
package sources

import (
	"github.com/spf13/cobra"

	"github.com/dmcp-project/dmcp/internal/cmd"
	"github.com/dmcp-project/dmcp/internal/cmd/options"
)

type Cmd struct {
	*cmd.BaseCmd
}

func NewCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	cobraCmd := &cobra.Command{
		Use:   "sources",
		Short: "Manages registry sources",
		Long: "Manages the registry source URLs which 'install' and 'browse' read from, " +
			"dealing with listing, adding and removing sources",
	}

	// Sub-commands for: dmcp sources
	fns := []func(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error){
		NewListCmd,   // list
		NewAddCmd,    // add
		NewRemoveCmd, // remove
	}

	for _, fn := range fns {
		tempCmd, err := fn(baseCmd, opt...)
		if err != nil {
			return nil, err
		}
		cobraCmd.AddCommand(tempCmd)
	}

	return cobraCmd, nil
}
