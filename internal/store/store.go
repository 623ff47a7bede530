package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/paths"
)

// Store performs read-modify-write cycles on index and manifest files.
// NewStore should be used to create instances of Store.
type Store struct {
	paths     paths.Paths
	committer *Committer
	logger    hclog.Logger
	now       func() time.Time
}

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithClock sets the time source used for index timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// NewStore creates a Store over the resolved paths.
func NewStore(p paths.Paths, committer *Committer, logger hclog.Logger, opt ...Option) (*Store, error) {
	if committer == nil {
		return nil, fmt.Errorf("committer cannot be nil")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	s := &Store{
		paths:     p,
		committer: committer,
		logger:    logger.Named("store"),
		now:       time.Now,
	}

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Paths returns the resolved paths the store operates on.
func (s *Store) Paths() paths.Paths {
	return s.paths
}

// Committer returns the committer used for writes.
func (s *Store) Committer() *Committer {
	return s.committer
}

// ReadIndex reads the scope's index. An absent index is returned as a fresh, empty index.
// A corrupt index is an error, never silently replaced.
func (s *Store) ReadIndex(scope manifest.Scope) (*manifest.Index, error) {
	path := s.paths.IndexFile(scope)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return manifest.NewIndex(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read index %s: %w", dmcperrors.ErrIO, path, err)
	}

	idx, err := manifest.ParseIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return idx, nil
}

// UpdateIndex applies fn to the scope's index, stamps it and commits it.
// Nothing is written when fn returns an error.
func (s *Store) UpdateIndex(ctx context.Context, scope manifest.Scope, fn func(*manifest.Index) error) error {
	idx, err := s.ReadIndex(scope)
	if err != nil {
		return err
	}

	if err := fn(idx); err != nil {
		return err
	}

	if err := idx.Touch(s.now()); err != nil {
		return fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}

	data, err := idx.Marshal()
	if err != nil {
		return err
	}

	path := s.paths.IndexFile(scope)
	s.logger.Debug("Committing index", "scope", scope, "path", path, "servers", idx.Len())

	return s.committer.Commit(ctx, scope, path, data)
}

// ReadManifest reads the raw manifest document at path.
// An absent manifest is reported as ErrServerNotFound.
func (s *Store) ReadManifest(path string) (*manifest.Document, error) {
	doc, err := manifest.ReadDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no manifest at %s", dmcperrors.ErrServerNotFound, path)
	}
	if err != nil && !errors.Is(err, dmcperrors.ErrSerialization) {
		return nil, fmt.Errorf("%w: failed to read manifest: %w", dmcperrors.ErrIO, err)
	}
	return doc, err
}

// UpdateManifest applies fn to the raw manifest at path and commits the result.
// Fields fn does not touch, including ones unknown to dmcp, are written back unchanged.
func (s *Store) UpdateManifest(
	ctx context.Context,
	scope manifest.Scope,
	path string,
	fn func(*manifest.Document) error,
) error {
	doc, err := s.ReadManifest(path)
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		return err
	}

	return s.WriteManifest(ctx, scope, path, doc)
}

// WriteManifest commits doc to path.
func (s *Store) WriteManifest(ctx context.Context, scope manifest.Scope, path string, doc *manifest.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}

	s.logger.Debug("Committing manifest", "scope", scope, "path", path)

	return s.committer.Commit(ctx, scope, path, data)
}
