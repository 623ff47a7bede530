package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/probe"
)

func TestNewRootCmd(t *testing.T) {
	root, err := NewRootCmd(&internalcmd.BaseCmd{})
	require.NoError(t, err)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{
		"browse", "config", "connect", "info", "install", "list",
		"paths", "serve", "sources", "tools", "uninstall",
	} {
		assert.Contains(t, names, want)
	}

	require.True(t, root.SilenceErrors)
	require.True(t, root.SilenceUsage)
	require.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestLifecycle_InstallListUninstall(t *testing.T) {
	env := newTestEnv(t)
	env.addSource(t, manifest.ScopeUser, env.writeRegistry(t, "registry.json", echoRegistry))

	stdout, _, err := env.run(t, NewInstallCmd, "com.example.echo")
	require.NoError(t, err)
	require.Equal(t, "Installed com.example.echo\n", stdout)
	require.Equal(t, []manifest.Source{{URL: "https://git.example.com/echo.git"}}, env.fetcher.fetched)

	installDir := env.paths.ServerDir(manifest.ScopeUser, "com.example.echo")
	require.FileExists(t, filepath.Join(installDir, "main.py"))
	require.NoDirExists(t, filepath.Join(installDir, ".git"))

	stdout, _, err = env.run(t, NewListCmd)
	require.NoError(t, err)
	require.Equal(t, "com.example.echo\n"+
		"        Name:      Echo\n"+
		"        Version:   1.0.0\n"+
		"        Transport: stdio\n"+
		"        Scope:     user\n"+
		"        Install:   "+installDir+"\n"+
		"\n", stdout)

	stdout, _, err = env.run(t, NewListCmd, "--format", "json")
	require.NoError(t, err)
	var listed struct {
		Results []manifest.ServerInfo `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &listed))
	require.Len(t, listed.Results, 1)
	require.Equal(t, "com.example.echo", listed.Results[0].ID)

	stdout, _, err = env.run(t, NewUninstallCmd, "com.example.echo")
	require.NoError(t, err)
	require.Equal(t, "Uninstalled com.example.echo\n", stdout)
	require.NoDirExists(t, installDir)

	stdout, _, err = env.run(t, NewListCmd)
	require.NoError(t, err)
	require.Equal(t, "No MCP servers installed.\n", stdout)
}

func TestInstallCmd_Scope(t *testing.T) {
	tests := []struct {
		name          string
		elevated      bool
		args          []string
		wantScope     manifest.Scope
		wantRelaunch  bool
		wantInstalled bool
	}{
		{
			name:         "descriptor scope relaunches when unprivileged",
			args:         []string{"com.example.remote"},
			wantScope:    manifest.ScopeSystem,
			wantRelaunch: true,
		},
		{
			name:          "descriptor scope when elevated",
			elevated:      true,
			args:          []string{"com.example.remote"},
			wantScope:     manifest.ScopeSystem,
			wantInstalled: true,
		},
		{
			name:          "user flag overrides descriptor scope",
			args:          []string{"com.example.remote", "--user"},
			wantScope:     manifest.ScopeUser,
			wantInstalled: true,
		},
		{
			name:         "system flag",
			args:         []string{"com.example.echo", "--system"},
			wantScope:    manifest.ScopeSystem,
			wantRelaunch: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.elevated = tc.elevated
			env.addSource(t, manifest.ScopeUser, env.writeRegistry(t, "registry.json", echoRegistry))

			_, _, err := env.run(t, NewInstallCmd, tc.args...)

			if tc.wantRelaunch {
				require.ErrorIs(t, err, internalcmd.ErrRelaunched)
				require.Equal(t, 1, env.escalator.calls)
				require.NoFileExists(t, env.paths.IndexFile(tc.wantScope))
				require.Empty(t, env.fetcher.fetched)
				return
			}

			require.NoError(t, err)
			require.Zero(t, env.escalator.calls)
			require.Equal(t, tc.wantInstalled, fileExists(env.paths.ManifestFile(tc.wantScope, tc.args[0])))
		})
	}
}

func TestInstallCmd_UnreachableSources(t *testing.T) {
	const offline = "https://registry.invalid/index.json"

	env := newTestEnv(t)
	env.addSource(t, manifest.ScopeUser, offline)

	_, stderr, err := env.run(t, NewInstallCmd, "com.example.echo")
	require.ErrorIs(t, err, dmcperrors.ErrNetwork)
	require.Contains(t, stderr, "Warning: failed to fetch "+offline)
	require.NoFileExists(t, env.paths.IndexFile(manifest.ScopeUser))

	env.addSource(t, manifest.ScopeSystem, env.writeRegistry(t, "registry.json", echoRegistry))

	stdout, stderr, err := env.run(t, NewInstallCmd, "com.example.echo")
	require.NoError(t, err)
	require.Equal(t, "Installed com.example.echo\n", stdout)
	require.Contains(t, stderr, "Warning: failed to fetch "+offline)
}

func TestInstallCmd_Errors(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		noSources bool
		errIs     error
		errText   string
	}{
		{name: "no sources", args: []string{"com.example.echo"}, noSources: true, errIs: dmcperrors.ErrNoSources},
		{name: "unknown server", args: []string{"com.example.none"}, errIs: dmcperrors.ErrServerNotFound},
		{name: "path in id", args: []string{"../evil"}, errIs: dmcperrors.ErrInvalidInput},
		{name: "both scopes", args: []string{"com.example.echo", "--user", "--system"}, errText: "none of the others"},
		{name: "missing id", args: []string{}, errText: "accepts 1 arg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			if !tc.noSources {
				env.addSource(t, manifest.ScopeUser, env.writeRegistry(t, "registry.json", echoRegistry))
			}

			_, _, err := env.run(t, NewInstallCmd, tc.args...)
			require.Error(t, err)
			if tc.errIs != nil {
				require.ErrorIs(t, err, tc.errIs)
			}
			if tc.errText != "" {
				require.Contains(t, err.Error(), tc.errText)
			}
			require.NoFileExists(t, env.paths.IndexFile(manifest.ScopeUser))
		})
	}
}

func TestUninstallCmd_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, NewUninstallCmd, "com.example.none")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)
	require.NoFileExists(t, env.paths.IndexFile(manifest.ScopeUser))
}

// installRemote installs the SSE server of echoRegistry into the user scope.
func installRemote(t *testing.T, env *testEnv) {
	t.Helper()

	env.addSource(t, manifest.ScopeUser, env.writeRegistry(t, "registry.json", echoRegistry))
	_, _, err := env.run(t, NewInstallCmd, "com.example.remote", "--user")
	require.NoError(t, err)
}

func TestInfoCmd(t *testing.T) {
	env := newTestEnv(t)
	installRemote(t, env)

	stdout, _, err := env.run(t, NewInfoCmd, "com.example.remote")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "com.example.remote\n"))
	require.Contains(t, stdout, "        Name:        Remote\n")
	require.Contains(t, stdout, "        Version:     ?\n")
	require.Contains(t, stdout, "        Scope:       user\n")
	require.Contains(t, stdout, "        Transports:  sse (https://remote.example.com/sse)\n")

	stdout, _, err = env.run(t, NewInfoCmd, "com.example.remote", "--format", "json")
	require.NoError(t, err)
	var detail struct {
		Result struct {
			ID       string `json:"id"`
			Scope    string `json:"scope"`
			Manifest struct {
				Name string `json:"name"`
			} `json:"manifest"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &detail))
	require.Equal(t, "com.example.remote", detail.Result.ID)
	require.Equal(t, "user", detail.Result.Scope)
	require.Equal(t, "Remote", detail.Result.Manifest.Name)

	_, _, err = env.run(t, NewInfoCmd, "com.example.none")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)
}

func TestConfigCmd_SetGet(t *testing.T) {
	env := newTestEnv(t)
	installRemote(t, env)

	stdout, _, err := env.run(t, NewConfigCmd, "com.example.remote", "get")
	require.NoError(t, err)
	require.Equal(t, "No config set.\n", stdout)

	stdout, _, err = env.run(t, NewConfigCmd, "com.example.remote", "set", "token", "abc")
	require.NoError(t, err)
	require.Equal(t, "Set token = abc\n", stdout)

	_, _, err = env.run(t, NewConfigCmd, "com.example.remote", "set", "region", "eu")
	require.NoError(t, err)

	stdout, _, err = env.run(t, NewConfigCmd, "com.example.remote", "get")
	require.NoError(t, err)
	require.Equal(t, "region = eu\ntoken = abc\n", stdout)

	stdout, _, err = env.run(t, NewConfigCmd, "com.example.remote", "get", "token")
	require.NoError(t, err)
	require.Equal(t, "abc\n", stdout)

	stdout, _, err = env.run(t, NewConfigCmd, "com.example.remote", "get", "token", "--format", "json")
	require.NoError(t, err)
	require.JSONEq(t, `{"results": [{"key": "token", "value": "abc"}]}`, stdout)

	// Every other manifest field survives the write.
	doc, err := manifest.ReadDocument(env.paths.ManifestFile(manifest.ScopeUser, "com.example.remote"))
	require.NoError(t, err)
	require.Equal(t, "Remote", doc.String(manifest.KeyName))
	require.Equal(t, "system", doc.String(manifest.KeyScope))
}

func TestConfigCmd_Errors(t *testing.T) {
	env := newTestEnv(t)
	installRemote(t, env)

	tests := []struct {
		name  string
		args  []string
		errIs error
	}{
		{name: "missing key", args: []string{"com.example.remote", "get", "nope"}, errIs: dmcperrors.ErrConfigKeyNotFound},
		{name: "unknown server", args: []string{"com.example.none", "get"}, errIs: dmcperrors.ErrServerNotFound},
		{name: "unknown action", args: []string{"com.example.remote", "frob"}, errIs: dmcperrors.ErrInvalidInput},
		{name: "set without value", args: []string{"com.example.remote", "set", "k"}, errIs: dmcperrors.ErrInvalidInput},
		{name: "get with two keys", args: []string{"com.example.remote", "get", "a", "b"}, errIs: dmcperrors.ErrInvalidInput},
		{name: "blank key", args: []string{"com.example.remote", "set", " ", "v"}, errIs: dmcperrors.ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := env.run(t, NewConfigCmd, tc.args...)
			require.ErrorIs(t, err, tc.errIs)
		})
	}

	_, _, err := env.run(t, NewConfigCmd, "com.example.remote")
	require.Error(t, err)
}

func TestConnectCmd(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run(t, NewConnectCmd, "wss://h/x")
	require.NoError(t, err)
	require.Equal(t, "Connected wss://h/x as com.user.connected.server1\n", stdout)

	m, err := manifest.Load(env.paths.ManifestFile(manifest.ScopeUser, "com.user.connected.server1"))
	require.NoError(t, err)
	require.Equal(t, []manifest.Transport{manifest.NewWebSocketTransport("wss://h/x")}, m.Transports)

	stdout, _, err = env.run(
		t,
		NewConnectCmd,
		"https://h/sse",
		"--id", "com.example.mine",
		"--name", "Mine",
		"--config", "token=a=b",
		"--config", "region=eu",
	)
	require.NoError(t, err)
	require.Equal(t, "Connected https://h/sse as com.example.mine\n", stdout)

	m, err = manifest.Load(env.paths.ManifestFile(manifest.ScopeUser, "com.example.mine"))
	require.NoError(t, err)
	require.Equal(t, "Mine", m.Name)
	require.Equal(t, map[string]any{"token": "a=b", "region": "eu"}, m.Config)
	require.Equal(t, []manifest.Transport{manifest.NewSSETransport("https://h/sse")}, m.Transports)
}

func TestConnectCmd_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, NewConnectCmd, "wss://h/x", "--config", "novalue")
	require.ErrorIs(t, err, dmcperrors.ErrInvalidInput)

	_, _, err = env.run(t, NewConnectCmd, "wss://h/x", "--system")
	require.ErrorIs(t, err, internalcmd.ErrRelaunched)
	require.Equal(t, 1, env.escalator.calls)
	require.NoFileExists(t, env.paths.IndexFile(manifest.ScopeSystem))
}

func TestParseConfigPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{name: "none", pairs: nil, want: nil},
		{name: "simple", pairs: []string{"a=1", " b =2"}, want: map[string]string{"a": "1", "b": "2"}},
		{name: "later wins", pairs: []string{"a=1", "a=2"}, want: map[string]string{"a": "2"}},
		{name: "empty value", pairs: []string{"a="}, want: map[string]string{"a": ""}},
		{name: "no separator", pairs: []string{"a"}, wantErr: true},
		{name: "empty key", pairs: []string{"=1"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseConfigPairs(tc.pairs)
			if tc.wantErr {
				require.ErrorIs(t, err, dmcperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBrowseCmd(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run(t, NewBrowseCmd)
	require.NoError(t, err)
	require.Equal(t, "No registry sources configured. Add one with: dmcp sources add <url>\n", stdout)

	stdout, _, err = env.run(t, NewBrowseCmd, "--format", "json")
	require.NoError(t, err)
	require.JSONEq(t, `{"results": []}`, stdout)

	url := env.writeRegistry(t, "registry.json", echoRegistry)
	env.addSource(t, manifest.ScopeSystem, url)
	env.addSource(t, manifest.ScopeUser, "file://"+filepath.Join(env.root, "missing.json"))

	stdout, stderr, err := env.run(t, NewBrowseCmd)
	require.NoError(t, err)
	require.Contains(t, stdout, "com.example.echo\n        Name:      Echo\n")
	require.Contains(t, stdout, "        Summary:   Echoes input\n")
	require.Contains(t, stdout, "        Source:    "+url+"\n")
	require.Contains(t, stdout, "com.example.remote\n")
	require.Contains(t, stderr, "Warning: failed to fetch file://")

	stdout, stderr, err = env.run(t, NewBrowseCmd, "--system")
	require.NoError(t, err)
	require.Contains(t, stdout, "com.example.echo\n")
	require.Empty(t, stderr)

	stdout, _, err = env.run(t, NewBrowseCmd, url, "--format", "yaml")
	require.NoError(t, err)
	require.Contains(t, stdout, "id: com.example.echo")
}

func TestBrowseCmd_URLErrors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, NewBrowseCmd, "file://"+filepath.Join(env.root, "missing.json"))
	require.ErrorIs(t, err, dmcperrors.ErrIO)

	bad := env.writeRegistry(t, "bad.json", `{"servers": 3}`)
	_, _, err = env.run(t, NewBrowseCmd, bad)
	require.ErrorIs(t, err, dmcperrors.ErrSerialization)
}

func TestPathsCmd(t *testing.T) {
	env := newTestEnv(t)
	installRemote(t, env)

	stdout, _, err := env.run(t, NewPathsCmd)
	require.NoError(t, err)
	require.Equal(t, "User sources:        "+env.paths.UserSources+"\n"+
		"User install dir:    "+env.paths.UserInstallDir+"\n"+
		"System sources:      "+env.paths.SystemSources+"\n"+
		"System install dir:  "+env.paths.SystemInstallDir+"\n"+
		"User index exists:   true\n"+
		"System index exists: false\n", stdout)

	stdout, _, err = env.run(t, NewPathsCmd, "--format", "json")
	require.NoError(t, err)
	var out struct {
		Result struct {
			SystemInstallDir  string `json:"systemInstallDir"`
			SystemIndexExists bool   `json:"systemIndexExists"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Equal(t, env.paths.SystemInstallDir, out.Result.SystemInstallDir)
	require.False(t, out.Result.SystemIndexExists)
}

func TestToolsCmd(t *testing.T) {
	env := newTestEnv(t)
	installRemote(t, env)

	env.tools.tools = []probe.Tool{
		{Name: "echo", Description: "Echo input"},
		{Name: "ping"},
	}

	stdout, _, err := env.run(t, NewToolsCmd, "com.example.remote")
	require.NoError(t, err)
	require.Equal(t, "Tools for 'com.example.remote' (2 total):\n  echo - Echo input\n  ping\n", stdout)
	require.Equal(t, "com.example.remote", env.tools.got.ID)
	require.Equal(t, env.paths.ServerDir(manifest.ScopeUser, "com.example.remote"), env.tools.got.InstallDir)

	env.tools.err = errors.New("server exited")
	_, _, err = env.run(t, NewToolsCmd, "com.example.remote")
	require.ErrorContains(t, err, "server exited")

	_, _, err = env.run(t, NewToolsCmd, "com.example.none")
	require.ErrorIs(t, err, dmcperrors.ErrServerNotFound)
}

func TestServeCmd_Flags(t *testing.T) {
	env := newTestEnv(t)

	c, err := NewServeCmd(&internalcmd.BaseCmd{}, env.options()...)
	require.NoError(t, err)

	addr := c.Flags().Lookup("addr")
	require.NotNil(t, addr)
	require.Equal(t, DefaultServeAddr, addr.DefValue)
	require.NotNil(t, c.Flags().Lookup("cors-origin"))
	require.Equal(t, "5s", c.Flags().Lookup("shutdown-timeout").DefValue)

	_, _, err = env.run(t, NewServeCmd, "--addr", "local host:8095")
	require.ErrorContains(t, err, "invalid API address")

	_, _, err = env.run(t, NewServeCmd, "--shutdown-timeout", "0s")
	require.ErrorContains(t, err, "shutdown timeout must be positive")

	_, _, err = env.run(t, NewServeCmd, "--cors-origin", "localhost:3000")
	require.ErrorContains(t, err, "invalid CORS origin")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
