// Package flags holds the global command line flags of dmcp and their environment variable fallbacks.
package flags

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// Env vars
	EnvVarSettingsFile = "DMCP_SETTINGS_FILE"
	EnvVarLogPath      = "DMCP_LOG_PATH"
	EnvVarLogLevel     = "DMCP_LOG_LEVEL"

	// Defaults
	DefaultSettingsFile = "" // Empty means the settings file in the user's MCP config directory.
	DefaultLogPath      = ""
	DefaultLogLevel     = "info"

	// Flag names
	FlagNameSettingsFile = "settings-file"
	FlagNameLogPath      = "log-path"
	FlagNameLogLevel     = "log-level"
	FlagNameDebug        = "debug"
)

var (
	SettingsFile string
	LogPath      string
	LogLevel     string
	Debug        bool
)

// InitFlags registers the global flags on fs.
// Values already present in the environment become the flag defaults.
func InitFlags(fs *pflag.FlagSet) {
	initSettingsFile(fs)
	initLogger(fs)
}

func initSettingsFile(fs *pflag.FlagSet) {
	if SettingsFile == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarSettingsFile)); env != "" {
			SettingsFile = env
		} else {
			SettingsFile = DefaultSettingsFile
		}
	}
	fs.StringVar(&SettingsFile, FlagNameSettingsFile, SettingsFile, "path to the dmcp settings file (default ~/.config/mcp/settings.toml)")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogPath)); env != "" {
			LogPath = env
		} else {
			LogPath = DefaultLogPath
		}
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogLevel)); env != "" {
			LogLevel = strings.ToLower(env)
		} else {
			LogLevel = DefaultLogLevel
		}
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level for dmcp logs (trace, debug, info, warn, error, off)")

	fs.BoolVarP(&Debug, FlagNameDebug, "d", Debug, "enable debug output on stderr")
}
