// Package stage fetches a stdio server's files into a throwaway directory and copies them into place.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/files"
	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/perms"
)

// Fetcher retrieves the source tree described by src into the empty directory dest.
type Fetcher interface {
	Fetch(ctx context.Context, src manifest.Source, dest string) error
}

// GitFetcher fetches sources with a shallow, blobless git clone.
type GitFetcher struct {
	// Program is the git executable (default "git").
	Program string
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  hclog.Logger
}

// Fetch implements Fetcher.
func (g *GitFetcher) Fetch(ctx context.Context, src manifest.Source, dest string) error {
	program := g.Program
	if program == "" {
		program = "git"
	}

	args := []string{"clone", "--depth", "1", "--filter=blob:none"}
	if ref := strings.TrimSpace(src.Ref); ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, src.URL, dest)

	if g.Logger != nil {
		g.Logger.Debug("Cloning server source", "program", program, "args", args)
	}

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Stdout = g.Stdout
	cmd.Stderr = g.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s clone of '%s': %w", dmcperrors.ErrFetchFailed, program, src.URL, err)
	}

	return nil
}

// Stager stages server files: fetch into a temporary directory, copy the selected tree into the install
// directory, then remove the temporary directory.
// NewStager should be used to create instances of Stager.
type Stager struct {
	fetcher Fetcher
	tempDir string
	logger  hclog.Logger
}

// NewStager creates a Stager which fetches with fetcher and stages under tempDir (os.TempDir() when empty).
func NewStager(fetcher Fetcher, tempDir string, logger hclog.Logger) (*Stager, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Stager{
		fetcher: fetcher,
		tempDir: tempDir,
		logger:  logger.Named("stage"),
	}, nil
}

// Stage copies the files described by src into installDir.
// A failed fetch is reported as ErrFetchFailed, a failed local copy as ErrCopyFailed.
func (s *Stager) Stage(ctx context.Context, src manifest.Source, installDir string) error {
	if strings.TrimSpace(src.URL) == "" {
		return fmt.Errorf("%w: server source has no url", dmcperrors.ErrInvalidInput)
	}

	if err := os.MkdirAll(s.tempDir, perms.SecureDir); err != nil {
		return fmt.Errorf("%w: failed to create staging root: %w", dmcperrors.ErrIO, err)
	}

	tmp, err := os.MkdirTemp(s.tempDir, "dmcp-clone-")
	if err != nil {
		return fmt.Errorf("%w: failed to create staging directory: %w", dmcperrors.ErrIO, err)
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			s.logger.Warn("Failed to remove staging directory", "path", tmp, "error", err)
		}
	}()

	s.logger.Debug("Fetching server source", "url", src.URL, "ref", src.Ref, "staging", tmp)

	if err := s.fetcher.Fetch(ctx, src, tmp); err != nil {
		if !errors.Is(err, dmcperrors.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", dmcperrors.ErrFetchFailed, err)
		}
		return err
	}

	dir := tmp
	if p := strings.TrimSpace(src.Path); p != "" {
		dir = filepath.Join(tmp, p)
		if !files.IsWithin(tmp, dir) {
			return fmt.Errorf("%w: source path '%s' escapes the fetched tree", dmcperrors.ErrInvalidInput, src.Path)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: source path '%s' not found in fetched tree", dmcperrors.ErrInvalidInput, src.Path)
		}
	}

	s.logger.Debug("Copying staged files", "from", dir, "to", installDir)

	if err := files.CopyTree(dir, installDir); err != nil {
		return fmt.Errorf("%w: %w", dmcperrors.ErrCopyFailed, err)
	}

	return nil
}
