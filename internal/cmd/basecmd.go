package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/dmcp-project/dmcp/internal/flags"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/perms"
)

type BaseCmd struct {
	logger hclog.Logger
	logOut io.Closer
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the current logger for the command
func (c *BaseCmd) Logger() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	c.logger, c.logOut = NewLogger(os.Stderr)
	return c.logger
}

// Close releases the log file opened by Logger, if any.
// The logger keeps working afterwards but writes nowhere.
func (c *BaseCmd) Close() error {
	if c.logOut == nil {
		return nil
	}

	err := c.logOut.Close()
	c.logOut = nil
	if c.logger != nil {
		c.logger = hclog.NewNullLogger()
	}

	return err
}

// NewLogger creates the dmcp logger from the global flags (which already fall back to the environment).
// --debug sends debug output to stderr; otherwise logs go to the log path, or nowhere when it is unset.
// The returned io.Closer releases the log file and must be called once logging is done.
func NewLogger(stderr io.Writer) (hclog.Logger, io.Closer) {
	logLevel := LogLevel(flags.LogLevel)
	if flags.Debug {
		logLevel = "debug"
	}

	var output io.Writer = io.Discard
	var closer io.Closer = nopCloser{}
	logPath := strings.TrimSpace(flags.LogPath)
	switch {
	case flags.Debug:
		output = stderr
	case logPath != "":
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.SecureFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Failed to open log file (%s): %v, logging disabled\n", logPath, err)
		} else {
			output = f
			closer = f
		}
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "dmcp",
		Level:  hclog.LevelFromString(logLevel),
		Output: output,
	})

	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LogLevel normalizes a log level name, falling back to the default for unknown values.
func LogLevel(lvl string) string {
	lvl = strings.ToLower(strings.TrimSpace(lvl))
	switch lvl {
	case "trace", "debug", "info", "warn", "error", "off":
		return lvl
	default:
		return flags.DefaultLogLevel
	}
}

// ScopeFilter converts --user/--system flags into the scopes to include.
// Setting neither flag includes both scopes.
func ScopeFilter(user bool, system bool) (includeUser bool, includeSystem bool) {
	if !user && !system {
		return true, true
	}
	return user, system
}

// TargetScope converts --user/--system flags into the single scope a change applies to.
// Setting neither flag selects fallback.
func TargetScope(user bool, system bool, fallback manifest.Scope) manifest.Scope {
	switch {
	case system:
		return manifest.ScopeSystem
	case user:
		return manifest.ScopeUser
	default:
		return fallback
	}
}
