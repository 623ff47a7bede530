package installer

import (
	"context"
	"fmt"
	"path/filepath"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/files"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

// PartialError reports a mutation which failed after some of its changes were already applied.
// Nothing is rolled back.
type PartialError struct {
	// Step names the step that failed.
	Step string
	// Done describes what had already been applied.
	Done string
	Err  error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partially applied (%s) but %s failed: %v", e.Done, e.Step, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Uninstall removes the server id from the scope it is found in, user scope first.
// The install directory is removed before the index entry; a failure removing the directory
// leaves the index untouched.
func (e *Engine) Uninstall(ctx context.Context, id string) error {
	loc, err := e.discovery.Locate(id)
	if err != nil {
		return err
	}

	root := e.store.Paths().InstallDir(loc.Scope)
	if !files.IsWithin(root, loc.InstallDir) {
		return fmt.Errorf(
			"%w: install directory %s of '%s' is outside the %s install directory %s",
			dmcperrors.ErrInvalidInput,
			loc.InstallDir,
			id,
			loc.Scope,
			root,
		)
	}

	logger := e.logger.With("id", id, "scope", loc.Scope)
	logger.Info("Removing server files", "dir", loc.InstallDir)

	if err := e.store.Committer().RemoveTree(ctx, loc.Scope, filepath.Clean(loc.InstallDir)); err != nil {
		return err
	}

	err = e.store.UpdateIndex(ctx, loc.Scope, func(idx *manifest.Index) error {
		idx.Remove(id)
		return nil
	})
	if err != nil {
		return &PartialError{
			Step: "index update",
			Done: "removed " + loc.InstallDir,
			Err:  err,
		}
	}

	logger.Info("Uninstalled server")

	return nil
}
