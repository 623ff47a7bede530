package installer

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
)

const (
	// ConnectedIDPrefix prefixes the generated IDs of connected servers, which are numbered from 1 per scope.
	ConnectedIDPrefix = "com.user.connected.server"

	// DefaultConnectSummary is the summary given to connected servers which declare none.
	DefaultConnectSummary = "Connected via dmcp connect"

	// DefaultConnectVersion is the version given to connected servers which declare none.
	DefaultConnectVersion = "1.0.0"
)

// Overrides are user supplied manifest values applied on top of whatever Connect fetches.
// Empty fields are not applied.
type Overrides struct {
	ID      string
	Name    string
	Summary string
	Version string
	// Config values are stored as strings.
	Config map[string]string
}

// Connect registers the remote server at url in scope and returns the ID it was installed under.
//
// The URL is first fetched as a ready-made descriptor. When that fails for any reason the URL itself
// is the endpoint: ws:// and wss:// URLs become a websocket transport, anything else an SSE transport.
// The ID is taken from the overrides, then the fetched descriptor, and is otherwise generated.
func (e *Engine) Connect(ctx context.Context, url string, ov Overrides, scope manifest.Scope) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("%w: url cannot be empty", dmcperrors.ErrInvalidInput)
	}

	logger := e.logger.With("url", url, "scope", scope)

	fetched, err := e.registry.FetchDescriptor(ctx, url)
	if err != nil {
		logger.Debug("No descriptor at URL, connecting to it directly", "error", err)
		fetched = nil
	}

	var fetchedID string
	if fetched != nil {
		fetchedID = fetched.ID()
	}

	id, err := e.connectID(scope, ov.ID, fetchedID)
	if err != nil {
		return "", err
	}

	doc := fetched
	if doc == nil {
		doc = manifest.NewDocument()
		if err := doc.SetID(id); err != nil {
			return "", fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
		}
	}

	if err := applyOverrides(doc, id, ov); err != nil {
		return "", err
	}

	if fetched == nil {
		if err := doc.SetTransports(manifest.TransportForURL(url)); err != nil {
			return "", fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
		}
	}

	if err := makeInstallDir(e.store.Paths().ServerDir(scope, id)); err != nil {
		return "", err
	}

	if err := e.commit(ctx, scope, id, doc); err != nil {
		return "", err
	}

	transport, _ := doc.Transports()
	logger.Info("Connected server", "id", id, "transport", transport[0].Type)

	return id, nil
}

// connectID picks the ID for a connected server: override, then fetched, then the next generated ID.
func (e *Engine) connectID(scope manifest.Scope, override string, fetched string) (string, error) {
	for _, id := range []string{override, fetched} {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := paths.ValidateID(id); err != nil {
			return "", err
		}
		return id, nil
	}

	idx, err := e.store.ReadIndex(scope)
	if err != nil {
		return "", err
	}

	return NextConnectedID(idx.IDs()), nil
}

// NextConnectedID returns the generated connected server ID following the highest one in ids.
func NextConnectedID(ids []string) string {
	highest := 0
	for _, id := range ids {
		n, ok := strings.CutPrefix(id, ConnectedIDPrefix)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(n)
		if err != nil || v < 0 {
			continue
		}
		highest = max(highest, v)
	}

	return ConnectedIDPrefix + strconv.Itoa(highest+1)
}

func applyOverrides(doc *manifest.Document, id string, ov Overrides) error {
	fields := []struct {
		key      string
		override string
		fallback string
	}{
		{key: manifest.KeyName, override: ov.Name, fallback: id},
		{key: manifest.KeySummary, override: ov.Summary, fallback: DefaultConnectSummary},
		{key: manifest.KeyVersion, override: ov.Version, fallback: DefaultConnectVersion},
	}

	for _, f := range fields {
		v := strings.TrimSpace(f.override)
		if v == "" {
			if doc.String(f.key) != "" {
				continue
			}
			v = f.fallback
		}
		if err := doc.Set(f.key, v); err != nil {
			return fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
		}
	}

	keys := make([]string, 0, len(ov.Config))
	for k := range ov.Config {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: config key cannot be empty", dmcperrors.ErrInvalidInput)
		}
		if err := doc.SetConfigValue(strings.TrimSpace(k), ov.Config[k]); err != nil {
			return err
		}
	}

	return nil
}
