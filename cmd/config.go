package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/cmd/output"
	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/printer"
)

const (
	configActionGet = "get"
	configActionSet = "set"
)

// ConfigCmd should be used to represent the 'config' command.
type ConfigCmd struct {
	*internalcmd.BaseCmd
	Format internalcmd.OutputFormat
	opts   cmdopts.CmdOptions
}

// NewConfigCmd creates a newly configured (Cobra) command.
func NewConfigCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ConfigCmd{
		BaseCmd: baseCmd,
		Format:  internalcmd.FormatText,
		opts:    opts,
	}

	cobraCmd := &cobra.Command{
		Use:   "config <id> get [key] | config <id> set <key> <value>",
		Short: "Gets or sets the configuration of an installed server",
		Long:  c.longDescription(),
		Args:  cobra.RangeArgs(2, 4),
		RunE:  c.run,
	}

	allowed := internalcmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format for 'get' (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

// longDescription returns the long version of the command description.
func (c *ConfigCmd) longDescription() string {
	return `Gets or sets the configuration of an installed server.

'get' prints every config value, or the value of a single key.
'set' stores the value as a string in the server's manifest; every other manifest field is kept.
System-scope manifests are written through the elevation broker.`
}

// run is configured (via NewConfigCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *ConfigCmd) run(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	if id == "" {
		return fmt.Errorf("server id is required and cannot be empty")
	}

	switch action, rest := args[1], args[2:]; action {
	case configActionGet:
		if len(rest) > 1 {
			return fmt.Errorf("%w: 'config get' takes at most one key", dmcperrors.ErrInvalidInput)
		}
		var key string
		if len(rest) == 1 {
			key = rest[0]
		}
		return c.get(cmd, id, key)
	case configActionSet:
		if len(rest) != 2 {
			return fmt.Errorf("%w: 'config set' requires a key and a value", dmcperrors.ErrInvalidInput)
		}
		return c.set(cmd, id, rest[0], rest[1])
	default:
		return fmt.Errorf(
			"%w: unknown config action '%s' (expected '%s' or '%s')",
			dmcperrors.ErrInvalidInput,
			action,
			configActionGet,
			configActionSet,
		)
	}
}

func (c *ConfigCmd) get(cmd *cobra.Command, id string, key string) error {
	key = strings.TrimSpace(key)

	var p output.Printer[printer.ConfigEntry] = &printer.ConfigPrinter{ValuesOnly: key != ""}
	handler, err := internalcmd.FormatHandler(cmd.OutOrStdout(), c.Format, p)
	if err != nil {
		return err
	}

	env, err := internalcmd.NewEnvironment(c.Logger(), c.opts)
	if err != nil {
		return handler.HandleError(err)
	}

	values, err := env.Engine.GetConfig(id, key)
	if err != nil {
		return handler.HandleError(err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]printer.ConfigEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, printer.ConfigEntry{Key: k, Value: values[k]})
	}

	return handler.HandleResults(entries...)
}

func (c *ConfigCmd) set(cmd *cobra.Command, id string, key string, value string) error {
	logger := c.Logger()

	env, err := internalcmd.NewEnvironment(logger, c.opts)
	if err != nil {
		return err
	}

	loc, err := env.Discovery.Locate(id)
	if err != nil {
		return err
	}

	err = env.Engine.SetConfig(cmd.Context(), id, key, value)
	if err = env.EscalateOnPermission(cmd.Context(), loc.Scope, err); err != nil {
		return err
	}

	logger.Debug("Config value set", "id", id, "key", key, "scope", loc.Scope)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", strings.TrimSpace(key), value); err != nil {
		return err
	}

	return nil
}
