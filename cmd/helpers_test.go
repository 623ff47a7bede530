package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	internalcmd "github.com/dmcp-project/dmcp/internal/cmd"
	cmdopts "github.com/dmcp-project/dmcp/internal/cmd/options"
	"github.com/dmcp-project/dmcp/internal/config"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
	"github.com/dmcp-project/dmcp/internal/privilege"
	"github.com/dmcp-project/dmcp/internal/probe"
)

type fakeLoader struct{}

func (fakeLoader) Load(string) (*config.Settings, error) {
	return config.Defaults(), nil
}

// recordingEscalator counts relaunch requests instead of relaunching.
type recordingEscalator struct {
	calls int
}

func (e *recordingEscalator) ReExec(context.Context) {
	e.calls++
}

// repoFetcher stands in for git, producing a small checkout.
type repoFetcher struct {
	fetched []manifest.Source
}

func (f *repoFetcher) Fetch(_ context.Context, src manifest.Source, dest string) error {
	f.fetched = append(f.fetched, src)
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "main.py"), []byte("print('echo')"), 0o644)
}

type fakeToolLister struct {
	tools []probe.Tool
	err   error
	got   manifest.Manifest
}

func (l *fakeToolLister) Tools(_ context.Context, m manifest.Manifest) ([]probe.Tool, error) {
	l.got = m
	return l.tools, l.err
}

// offlineTransport fails every request without touching the network.
type offlineTransport struct{}

func (offlineTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled in tests")
}

// testEnv is a sandboxed set of dmcp paths with fakes for every external effect.
type testEnv struct {
	paths     paths.Paths
	root      string
	escalator *recordingEscalator
	fetcher   *repoFetcher
	tools     *fakeToolLister
	elevated  bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	p := paths.Paths{
		UserSources:      filepath.Join(root, "user", "sources.list"),
		UserInstallDir:   filepath.Join(root, "user", "installed"),
		SystemSources:    filepath.Join(root, "system", "sources.list"),
		SystemInstallDir: filepath.Join(root, "system", "installed"),
	}

	t.Setenv(paths.EnvVarUserSourcesPath, p.UserSources)
	t.Setenv(paths.EnvVarUserInstallDir, p.UserInstallDir)
	t.Setenv(paths.EnvVarSystemSourcesPath, p.SystemSources)
	t.Setenv(paths.EnvVarSystemInstallDir, p.SystemInstallDir)

	return &testEnv{
		paths:     p,
		root:      root,
		escalator: &recordingEscalator{},
		fetcher:   &repoFetcher{},
		tools:     &fakeToolLister{},
	}
}

func (e *testEnv) options() []cmdopts.CmdOption {
	return []cmdopts.CmdOption{
		cmdopts.WithSettingsLoader(fakeLoader{}),
		cmdopts.WithChecker(privilege.Fixed(e.elevated)),
		cmdopts.WithEscalator(e.escalator),
		cmdopts.WithFetcher(e.fetcher),
		cmdopts.WithToolLister(e.tools),
		cmdopts.WithHTTPClient(&http.Client{Transport: offlineTransport{}}),
	}
}

// writeRegistry writes a registry file and returns its file:// URL.
func (e *testEnv) writeRegistry(t *testing.T, name string, content string) string {
	t.Helper()

	path := filepath.Join(e.root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return "file://" + path
}

// addSource appends url to the scope's sources file.
func (e *testEnv) addSource(t *testing.T, scope manifest.Scope, url string) {
	t.Helper()

	path := e.paths.SourcesFile(scope)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(url + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// run executes the command built by fn with args, returning what it wrote to stdout and stderr.
func (e *testEnv) run(
	t *testing.T,
	fn func(*internalcmd.BaseCmd, ...cmdopts.CmdOption) (*cobra.Command, error),
	args ...string,
) (string, string, error) {
	t.Helper()

	c, err := fn(&internalcmd.BaseCmd{}, e.options()...)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	c.SetOut(&stdout)
	c.SetErr(&stderr)
	c.SetArgs(args)

	err = c.Execute()

	return stdout.String(), stderr.String(), err
}

const echoRegistry = `{
  "servers": [
    {
      "id": "com.example.echo",
      "name": "Echo",
      "version": "1.0.0",
      "summary": "Echoes input\nback to you",
      "transports": [{"type": "stdio", "command": "python3", "args": ["main.py"]}],
      "source": {"url": "https://git.example.com/echo.git"}
    },
    {
      "id": "com.example.remote",
      "name": "Remote",
      "scope": "system",
      "transports": [{"type": "sse", "url": "https://remote.example.com/sse"}]
    }
  ]
}`
