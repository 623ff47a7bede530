package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultSettingsFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	loader := &DefaultLoader{}
	cfg, err := loader.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
	require.Equal(t, DefaultBroker, cfg.Elevation.Broker)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		expected *Settings
		errMsg   string
	}{
		{
			name: "path overrides",
			content: `
[paths]
user_sources = "~/mcp/sources.list"
system_install_dir = "/opt/mcp/installed"
`,
			expected: &Settings{
				Paths: PathSettings{
					UserSources:      "~/mcp/sources.list",
					SystemInstallDir: "/opt/mcp/installed",
				},
				Elevation: ElevationSettings{Broker: DefaultBroker},
			},
		},
		{
			name: "custom broker",
			content: `
[elevation]
broker = "doas"
`,
			expected: &Settings{Elevation: ElevationSettings{Broker: "doas"}},
		},
		{
			name: "blank broker falls back to default",
			content: `
[elevation]
broker = "  "
`,
			expected: &Settings{Elevation: ElevationSettings{Broker: DefaultBroker}},
		},
		{
			name: "relative path rejected",
			content: `
[paths]
user_install_dir = "relative/dir"
`,
			errMsg: "settings value invalid: 'paths.user_install_dir' (value: 'relative/dir')",
		},
		{
			name: "broker with arguments rejected",
			content: `
[elevation]
broker = "sudo -n"
`,
			errMsg: "settings value invalid: 'elevation.broker'",
		},
		{
			name:    "malformed toml",
			content: `[paths`,
			errMsg:  "failed to decode settings",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			loader := &DefaultLoader{}
			cfg, err := loader.Load(writeSettings(t, tc.content))
			if tc.errMsg != "" {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrConfigLoadFailed)
				require.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, cfg)
		})
	}
}

func TestDefaultSettingsFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

	path, err := DefaultSettingsFile()
	require.NoError(t, err)
	require.Equal(t, "/xdg/config/mcp/settings.toml", path)
}
