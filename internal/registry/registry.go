// Package registry fetches server descriptors from registry sources and connect manifest URLs.
// A registry is a JSON object whose servers array holds one descriptor per installable server.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

const (
	// DefaultUserAgent identifies dmcp to registries.
	DefaultUserAgent = "dmcp/1.0"

	// DefaultConnectTimeout bounds establishing a connection.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultTimeout bounds a whole request, including reading the body.
	DefaultTimeout = 30 * time.Second

	unknownField = "?"
)

// Registry is the decoded content of one registry source.
type Registry struct {
	Servers []*manifest.Document
}

// RegistryServer summarizes one descriptor offered by a registry.
type RegistryServer struct {
	ID        string `json:"id"        yaml:"id"`
	Name      string `json:"name"      yaml:"name"`
	Summary   string `json:"summary"   yaml:"summary"`
	Version   string `json:"version"   yaml:"version"`
	Transport string `json:"transport" yaml:"transport"`
	// Source is the registry URL the descriptor came from.
	Source string `json:"source" yaml:"source"`
}

// Client fetches registries over HTTP(S) or from file:// URLs.
// NewClient should be used to create instances of Client.
type Client struct {
	http      *http.Client
	userAgent string
	logger    hclog.Logger
}

// Option defines a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) error {
		if c == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		client.http = c
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(client *Client) error {
		ua = strings.TrimSpace(ua)
		if ua == "" {
			return fmt.Errorf("user agent cannot be empty")
		}
		client.userAgent = ua
		return nil
	}
}

// NewClient creates a Client with bounded connect and overall timeouts.
func NewClient(logger hclog.Logger, opt ...Option) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: DefaultConnectTimeout}).DialContext
	transport.TLSHandshakeTimeout = DefaultConnectTimeout

	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout, Transport: transport},
		userAgent: DefaultUserAgent,
		logger:    logger.Named("registry"),
	}

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Fetch retrieves and decodes the registry at url.
func (c *Client) Fetch(ctx context.Context, url string) (Registry, error) {
	body, err := c.load(ctx, url)
	if err != nil {
		return Registry{}, err
	}

	var raw struct {
		Servers *[]json.RawMessage `json:"servers"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Registry{}, fmt.Errorf("%w: invalid registry JSON from '%s': %w", dmcperrors.ErrSerialization, url, err)
	}
	if raw.Servers == nil {
		return Registry{}, fmt.Errorf("%w: registry '%s' has no servers array", dmcperrors.ErrInvalidInput, url)
	}

	reg := Registry{Servers: make([]*manifest.Document, 0, len(*raw.Servers))}
	for i, s := range *raw.Servers {
		doc, err := manifest.ParseDocument(s)
		if err != nil {
			return Registry{}, fmt.Errorf(
				"%w: registry '%s' server entry %d: %w",
				dmcperrors.ErrSerialization,
				url,
				i,
				err,
			)
		}
		reg.Servers = append(reg.Servers, doc)
	}

	c.logger.Debug("Fetched registry", "url", url, "servers", len(reg.Servers))

	return reg, nil
}

// FindServer scans the registries at urls, in order, for a descriptor whose id matches.
// The first match wins. Registries which cannot be fetched are skipped with a warning.
func (c *Client) FindServer(ctx context.Context, urls []string, id string) (*manifest.Document, error) {
	doc, skipped, err := c.Search(ctx, urls, id)
	for _, s := range skipped {
		c.logger.Warn("Skipping registry source", "error", s)
	}

	return doc, err
}

// Search behaves like FindServer but also returns the fetch failure of every registry it had to skip.
// When no registry could be read at all, the returned error wraps both ErrServerNotFound and each fetch
// failure, so an unreachable registry is reported as ErrNetwork.
func (c *Client) Search(ctx context.Context, urls []string, id string) (*manifest.Document, []error, error) {
	if len(urls) == 0 {
		return nil, nil, dmcperrors.ErrNoSources
	}

	var skipped []error
	for _, url := range urls {
		reg, err := c.Fetch(ctx, url)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, skipped, err
			}
			skipped = append(skipped, fmt.Errorf("failed to fetch %s: %w", url, err))
			continue
		}

		for _, doc := range reg.Servers {
			if doc.ID() == id {
				c.logger.Debug("Found server", "id", id, "url", url)
				return doc, skipped, nil
			}
		}
	}

	notFound := fmt.Errorf("%w: '%s' in any registry source", dmcperrors.ErrServerNotFound, id)
	if len(skipped) == len(urls) {
		return nil, skipped, errors.Join(append([]error{notFound}, skipped...)...)
	}

	return nil, skipped, notFound
}

// FetchDescriptor retrieves a single ready-made server descriptor (a connect manifest) from url.
// It must be a JSON object with a non-empty id and a valid, non-empty transports list.
func (c *Client) FetchDescriptor(ctx context.Context, url string) (*manifest.Document, error) {
	body, err := c.load(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := manifest.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s' is not a JSON object: %w", dmcperrors.ErrSerialization, url, err)
	}

	if strings.TrimSpace(doc.ID()) == "" {
		return nil, fmt.Errorf("%w: descriptor at '%s' has no id", dmcperrors.ErrInvalidInput, url)
	}
	if err := manifest.ValidateDescriptor(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// List returns summaries of the servers offered by the registry at url.
func (c *Client) List(ctx context.Context, url string) ([]RegistryServer, error) {
	reg, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	out := make([]RegistryServer, 0, len(reg.Servers))
	for _, doc := range reg.Servers {
		out = append(out, summarize(doc, url))
	}

	return out, nil
}

// Browse lists the servers of every registry at urls.
// Servers may appear more than once when several registries offer them.
// Registries which cannot be listed contribute an error instead.
func (c *Client) Browse(ctx context.Context, urls []string) ([]RegistryServer, []error) {
	var servers []RegistryServer
	var errs []error

	for _, url := range urls {
		s, err := c.List(ctx, url)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to fetch %s: %w", url, err))
			continue
		}
		servers = append(servers, s...)
	}

	return servers, errs
}

func summarize(doc *manifest.Document, source string) RegistryServer {
	s := RegistryServer{
		ID:        or(doc.String(manifest.KeyID), unknownField),
		Name:      or(doc.String(manifest.KeyName), unknownField),
		Summary:   doc.String(manifest.KeySummary),
		Version:   or(doc.String(manifest.KeyVersion), unknownField),
		Transport: unknownField,
		Source:    source,
	}

	var ts []struct {
		Type string `json:"type"`
	}
	if ok, err := doc.Decode(manifest.KeyTransports, &ts); ok && err == nil && len(ts) > 0 && ts[0].Type != "" {
		s.Transport = ts[0].Type
	}

	return s
}

func or(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
