package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
)

// maxBodySize bounds how much of a registry response is read.
const maxBodySize = 32 << 20

// load retrieves the raw content at rawURL.
// Supports both HTTP(S) and file:// URLs; a URL without scheme is fetched over HTTP.
func (c *Client) load(ctx context.Context, rawURL string) ([]byte, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL '%s': %w", dmcperrors.ErrInvalidInput, rawURL, err)
	}

	switch parsedURL.Scheme {
	case "file":
		path := parsedURL.Path
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read file '%s': %w", dmcperrors.ErrIO, path, err)
		}
		return body, nil

	case "http", "https", "":
		if parsedURL.Scheme == "" {
			rawURL = "http://" + rawURL
		}
		return c.get(ctx, rawURL)

	default:
		return nil, fmt.Errorf("%w: unsupported URL scheme '%s'", dmcperrors.ErrInvalidInput, parsedURL.Scheme)
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL '%s': %w", dmcperrors.ErrInvalidInput, rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching", "url", rawURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch '%s': %w", dmcperrors.ErrNetwork, rawURL, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf(
			"%w: received non-success HTTP status from '%s': %d",
			dmcperrors.ErrNetwork,
			rawURL,
			resp.StatusCode,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body from '%s': %w", dmcperrors.ErrNetwork, rawURL, err)
	}

	return body, nil
}
