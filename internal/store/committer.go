// Package store implements the shared write protocol used by every mutation of dmcp's on-disk state.
// User-scope files are written directly. System-scope files are written directly when the process is
// elevated, otherwise through an elevated copy of a temporary file.
//
// There is no locking: two concurrent mutations of the same scope may lose one update.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/files"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/perms"
	"github.com/dmcp-project/dmcp/internal/privilege"
)

// Committer writes and removes files according to their scope and the process privileges.
// NewCommitter should be used to create instances of Committer.
type Committer struct {
	checker privilege.Checker
	runner  privilege.Runner
	logger  hclog.Logger
	tempDir string
}

// CommitterOption defines a functional option for configuring a Committer.
type CommitterOption func(*Committer) error

// WithTempDir sets the directory holding temporary files for elevated copies (default: os.TempDir()).
func WithTempDir(dir string) CommitterOption {
	return func(c *Committer) error {
		if dir == "" {
			return fmt.Errorf("temp dir cannot be empty")
		}
		c.tempDir = dir
		return nil
	}
}

// NewCommitter creates a Committer which uses runner for system-scope changes when checker reports no elevation.
func NewCommitter(
	checker privilege.Checker,
	runner privilege.Runner,
	logger hclog.Logger,
	opt ...CommitterOption,
) (*Committer, error) {
	if checker == nil {
		return nil, fmt.Errorf("privilege checker cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("privilege runner cannot be nil")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	c := &Committer{
		checker: checker,
		runner:  runner,
		logger:  logger.Named("commit"),
		tempDir: os.TempDir(),
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

// Elevated reports whether the process can write system-scope state directly.
func (c *Committer) Elevated() bool {
	return c.checker.IsElevated()
}

// Commit writes data to path.
func (c *Committer) Commit(ctx context.Context, scope manifest.Scope, path string, data []byte) error {
	if !c.needsBroker(scope) {
		c.logger.Trace("Writing file", "scope", scope, "path", path)
		return writeFile(path, data)
	}

	tmp := filepath.Join(c.tempDir, fmt.Sprintf("dmcp-%s.json", uuid.NewString()))
	if err := os.WriteFile(tmp, data, perms.RegularFile); err != nil {
		return fmt.Errorf("%w: failed to write temporary file %s: %w", dmcperrors.ErrIO, tmp, err)
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("Failed to remove temporary file", "path", tmp, "error", err)
		}
	}()

	c.logger.Debug("Writing file through elevation broker", "scope", scope, "path", path)

	return c.run(ctx, privilege.CopyFile{Src: tmp, Dst: path})
}

// RemoveTree recursively removes dir.
func (c *Committer) RemoveTree(ctx context.Context, scope manifest.Scope, dir string) error {
	if !c.needsBroker(scope) {
		c.logger.Debug("Removing directory", "scope", scope, "path", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("%w: failed to remove %s: %w", dmcperrors.ErrIO, dir, err)
		}
		return nil
	}

	c.logger.Debug("Removing directory through elevation broker", "scope", scope, "path", dir)

	return c.run(ctx, privilege.RemoveTree{Path: dir})
}

func (c *Committer) needsBroker(scope manifest.Scope) bool {
	return scope.IsSystem() && !c.checker.IsElevated()
}

func (c *Committer) run(ctx context.Context, op privilege.Operation) error {
	code, err := c.runner.Run(ctx, op)
	if err != nil {
		return fmt.Errorf("elevated '%v': %w", op.Argv(), err)
	}
	if code != 0 {
		return fmt.Errorf("%w: elevated '%v' exited with status %d", dmcperrors.ErrExternalProcess, op.Argv(), code)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := files.EnsureAtLeastRegularDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %w", dmcperrors.ErrIO, err)
	}
	if err := os.WriteFile(path, data, perms.RegularFile); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", dmcperrors.ErrIO, path, err)
	}
	return nil
}
