// Package sources manages the per-scope lists of registry URLs (sources.list files).
// Each non-empty line not starting with '#' is one registry URL.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
	"github.com/dmcp-project/dmcp/internal/store"
)

// Source is a registry URL and the scope whose sources file lists it.
type Source struct {
	URL   string         `json:"url"   yaml:"url"`
	Scope manifest.Scope `json:"scope" yaml:"scope"`
}

// List returns the registry sources of the requested scopes, user first.
// A URL listed in both scopes is returned once, attributed to the first scope listing it.
func List(p paths.Paths, includeUser bool, includeSystem bool) []Source {
	seen := map[string]struct{}{}
	var result []Source

	for _, scope := range manifest.Scopes() {
		if (scope == manifest.ScopeUser && !includeUser) || (scope == manifest.ScopeSystem && !includeSystem) {
			continue
		}
		for _, url := range Read(p.SourcesFile(scope)) {
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			result = append(result, Source{URL: url, Scope: scope})
		}
	}

	return result
}

// Read returns the URLs listed in the sources file at path, in order and without deduplication.
// An absent or unreadable file lists nothing.
func Read(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return parse(string(content))
}

// URLs returns only the URLs of the given sources.
func URLs(srcs []Source) []string {
	urls := make([]string, 0, len(srcs))
	for _, s := range srcs {
		urls = append(urls, s.URL)
	}
	return urls
}

// Manager adds and removes sources, writing through the shared commit path.
// NewManager should be used to create instances of Manager.
type Manager struct {
	paths     paths.Paths
	committer *store.Committer
	logger    hclog.Logger
}

// NewManager creates a Manager for the resolved paths.
func NewManager(p paths.Paths, committer *store.Committer, logger hclog.Logger) (*Manager, error) {
	if committer == nil {
		return nil, fmt.Errorf("committer cannot be nil")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Manager{
		paths:     p,
		committer: committer,
		logger:    logger.Named("sources"),
	}, nil
}

// List returns the registry sources of the requested scopes, user first.
func (m *Manager) List(includeUser bool, includeSystem bool) []Source {
	return List(m.paths, includeUser, includeSystem)
}

// Add appends url to the scope's sources file, creating the file when needed.
func (m *Manager) Add(ctx context.Context, scope manifest.Scope, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: source URL cannot be empty", dmcperrors.ErrInvalidInput)
	}
	if strings.HasPrefix(url, "#") {
		return fmt.Errorf("%w: source URL cannot start with '#'", dmcperrors.ErrInvalidInput)
	}

	path := m.paths.SourcesFile(scope)
	content, err := readFile(path)
	if err != nil {
		return err
	}

	for _, existing := range parse(content) {
		if existing == url {
			return fmt.Errorf("%w: '%s' in %s scope", dmcperrors.ErrSourceExists, url, scope)
		}
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += url + "\n"

	m.logger.Debug("Adding source", "scope", scope, "url", url, "path", path)

	return m.committer.Commit(ctx, scope, path, []byte(content))
}

// Remove deletes every line equal to url from the scope's sources file.
// Comments and other lines are kept as they are.
func (m *Manager) Remove(ctx context.Context, scope manifest.Scope, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: source URL cannot be empty", dmcperrors.ErrInvalidInput)
	}

	path := m.paths.SourcesFile(scope)
	content, err := readFile(path)
	if err != nil {
		return err
	}

	lines := strings.SplitAfter(content, "\n")
	kept := make([]string, 0, len(lines))
	removed := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == url {
			removed++
			continue
		}
		kept = append(kept, line)
	}

	if removed == 0 {
		return fmt.Errorf("%w: '%s' in %s scope", dmcperrors.ErrSourceNotFound, url, scope)
	}

	m.logger.Debug("Removing source", "scope", scope, "url", url, "path", path, "lines", removed)

	return m.committer.Commit(ctx, scope, path, []byte(strings.Join(kept, "")))
}

// readFile returns the file content, or an empty string when the file does not exist.
func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to read sources file %s: %w", dmcperrors.ErrIO, path, err)
	}
	return string(data), nil
}

func parse(content string) []string {
	var urls []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}
