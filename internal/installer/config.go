package installer

import (
	"context"
	"fmt"
	"maps"
	"strings"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

// SetConfig stores value as a string under key in the server's config object.
// Every other manifest field is written back unchanged.
func (e *Engine) SetConfig(ctx context.Context, id string, key string, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: config key cannot be empty", dmcperrors.ErrInvalidInput)
	}

	loc, err := e.discovery.Locate(id)
	if err != nil {
		return err
	}

	err = e.store.UpdateManifest(ctx, loc.Scope, loc.ManifestPath, func(doc *manifest.Document) error {
		return doc.SetConfigValue(key, value)
	})
	if err != nil {
		return err
	}

	e.logger.Info("Set config value", "id", id, "scope", loc.Scope, "key", key)

	return nil
}

// GetConfig returns the server's config values.
// An empty key returns the whole mapping; otherwise a single-entry mapping for key.
func (e *Engine) GetConfig(id string, key string) (map[string]any, error) {
	m, _, err := e.discovery.GetServer(id)
	if err != nil {
		return nil, err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		out := map[string]any{}
		maps.Copy(out, m.Config)
		return out, nil
	}

	v, ok := m.Config[key]
	if !ok {
		return nil, fmt.Errorf("%w: '%s' for server '%s'", dmcperrors.ErrConfigKeyNotFound, key, id)
	}

	return map[string]any{key: v}, nil
}
