// Package probe connects to an installed MCP server and asks it which tools it offers.
package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

// Tool is a tool advertised by a running server.
type Tool struct {
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Prober starts (stdio) or connects to (sse) a server, initializes an MCP session and lists its tools.
// NewProber should be used to create instances of Prober.
type Prober struct {
	logger      hclog.Logger
	initTimeout time.Duration
	clientName  string
	version     string
}

// Option defines a functional option for configuring a Prober.
type Option func(*Prober) error

// WithInitTimeout bounds the MCP initialize handshake.
func WithInitTimeout(d time.Duration) Option {
	return func(p *Prober) error {
		if d <= 0 {
			return fmt.Errorf("init timeout must be positive, got %v", d)
		}
		p.initTimeout = d
		return nil
	}
}

// WithClientInfo sets the implementation name and version reported to servers.
func WithClientInfo(name string, version string) Option {
	return func(p *Prober) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("client name cannot be empty")
		}
		p.clientName = name
		p.version = version
		return nil
	}
}

// DefaultInitTimeout is the default bound on the initialize handshake.
func DefaultInitTimeout() time.Duration {
	return 30 * time.Second
}

// NewProber creates a Prober.
func NewProber(logger hclog.Logger, opt ...Option) (*Prober, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	p := &Prober{
		logger:      logger.Named("probe"),
		initTimeout: DefaultInitTimeout(),
		clientName:  "dmcp",
		version:     "dev",
	}

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Tools lists the tools of the server described by m, sorted by name, using its first transport.
func (p *Prober) Tools(ctx context.Context, m manifest.Manifest) ([]Tool, error) {
	t, ok := m.FirstTransport()
	if !ok {
		return nil, fmt.Errorf("%w: server '%s' declares no transport", dmcperrors.ErrInvalidInput, m.ID)
	}

	c, err := p.connect(ctx, m, t)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Close(); err != nil {
			p.logger.Debug("Closing MCP client", "id", m.ID, "error", err)
		}
	}()

	initCtx, cancel := context.WithTimeout(ctx, p.initTimeout)
	defer cancel()

	initResult, err := c.Initialize(initCtx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: p.clientName, Version: p.version},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initializing MCP session with '%s': %w", dmcperrors.ErrExternalProcess, m.ID, err)
	}

	p.logger.Debug(
		"Initialized MCP session",
		"id", m.ID,
		"server", initResult.ServerInfo.Name,
		"version", initResult.ServerInfo.Version,
	)

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: listing tools of '%s': %w", dmcperrors.ErrExternalProcess, m.ID, err)
	}

	tools := make([]Tool, 0, len(result.Tools))
	for _, tool := range result.Tools {
		tools = append(tools, Tool{Name: tool.Name, Description: tool.Description})
	}
	slices.SortFunc(tools, func(a, b Tool) int {
		return strings.Compare(a.Name, b.Name)
	})

	return tools, nil
}

func (p *Prober) connect(ctx context.Context, m manifest.Manifest, t manifest.Transport) (*client.Client, error) {
	switch t.Type {
	case manifest.TransportStdio:
		command := ResolveCommand(m.InstallDir, t.Command)
		p.logger.Debug("Starting stdio server", "id", m.ID, "command", command, "args", t.Args)

		c, err := client.NewStdioMCPClientWithOptions(
			command,
			Environ(m.Config),
			t.Args,
			transport.WithCommandFunc(func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
				cmd := exec.CommandContext(ctx, command, args...)
				cmd.Env = env
				cmd.Dir = m.InstallDir
				return cmd, nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: starting '%s': %w", dmcperrors.ErrExternalProcess, command, err)
		}
		return c, nil

	case manifest.TransportSSE:
		p.logger.Debug("Connecting to SSE server", "id", m.ID, "url", t.URL)

		c, err := client.NewSSEMCPClient(t.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", dmcperrors.ErrInvalidInput, t.URL, err)
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: connecting to '%s': %w", dmcperrors.ErrNetwork, t.URL, err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: cannot probe %s transport", dmcperrors.ErrUnsupportedTransport, t.Type)
	}
}

// ResolveCommand resolves a relative command path (one containing a path separator) against the install directory.
// Bare command names are left for PATH lookup.
func ResolveCommand(installDir string, command string) string {
	if installDir == "" || filepath.IsAbs(command) || !strings.ContainsRune(command, '/') {
		return command
	}
	return filepath.Join(installDir, command)
}

// Environ returns the process environment extended with the server's config values.
func Environ(config map[string]any) []string {
	env := os.Environ()

	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v, ok := config[k].(string)
		if !ok {
			v = fmt.Sprint(config[k])
		}
		env = append(env, k+"="+v)
	}

	return env
}
