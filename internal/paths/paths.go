// Package paths resolves the locations of the per-scope sources files and install directories.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmcp-project/dmcp/internal/config"
	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
	"github.com/dmcp-project/dmcp/internal/files"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

const (
	// Env vars
	EnvVarUserSourcesPath   = "MCP_USER_SOURCES_PATH"
	EnvVarUserInstallDir    = "MCP_USER_INSTALL_DIR"
	EnvVarSystemSourcesPath = "MCP_SYSTEM_SOURCES_PATH"
	EnvVarSystemInstallDir  = "MCP_SYSTEM_INSTALL_DIR"

	// Defaults
	DefaultSystemSourcesPath = "/etc/mcp/sources.list"
	DefaultSystemInstallDir  = "/usr/share/mcp/installed"

	// IndexFileName is the name of the per-scope index file inside the install directory.
	IndexFileName = "index.json"

	// ManifestFileName is the name of the manifest file inside each server's install directory.
	ManifestFileName = "manifest.json"

	sourcesFileName = "sources.list"
	installDirName  = "installed"
)

// EnvVars returns the names of the environment variables which override resolved paths.
func EnvVars() []string {
	return []string{
		EnvVarUserSourcesPath,
		EnvVarUserInstallDir,
		EnvVarSystemSourcesPath,
		EnvVarSystemInstallDir,
	}
}

// Paths holds the resolved sources files and install directories for both scopes.
// Resolve should be used to create instances of Paths.
type Paths struct {
	UserSources      string `json:"userSources"      yaml:"user_sources"`
	UserInstallDir   string `json:"userInstallDir"   yaml:"user_install_dir"`
	SystemSources    string `json:"systemSources"    yaml:"system_sources"`
	SystemInstallDir string `json:"systemInstallDir" yaml:"system_install_dir"`
}

// Resolve resolves all paths using, in order of precedence:
// environment variables, the supplied settings (may be nil), then platform defaults.
func Resolve(settings *config.Settings) (Paths, error) {
	if settings == nil {
		settings = config.Defaults()
	}

	userConfig, err := files.UserSpecificConfigDir()
	if err != nil {
		return Paths{}, err
	}
	userData, err := files.UserSpecificDataDir()
	if err != nil {
		return Paths{}, err
	}

	var p Paths
	for _, r := range []struct {
		target   *string
		envVar   string
		setting  string
		fallback string
	}{
		{&p.UserSources, EnvVarUserSourcesPath, settings.Paths.UserSources, filepath.Join(userConfig, sourcesFileName)},
		{&p.UserInstallDir, EnvVarUserInstallDir, settings.Paths.UserInstallDir, filepath.Join(userData, installDirName)},
		{&p.SystemSources, EnvVarSystemSourcesPath, settings.Paths.SystemSources, DefaultSystemSourcesPath},
		{&p.SystemInstallDir, EnvVarSystemInstallDir, settings.Paths.SystemInstallDir, DefaultSystemInstallDir},
	} {
		v, err := resolvePath(r.envVar, r.setting, r.fallback)
		if err != nil {
			return Paths{}, err
		}
		*r.target = v
	}

	return p, nil
}

// SourcesFile returns the sources file for the scope.
func (p Paths) SourcesFile(scope manifest.Scope) string {
	if scope == manifest.ScopeSystem {
		return p.SystemSources
	}
	return p.UserSources
}

// InstallDir returns the install directory (holding the index and every server's directory) for the scope.
func (p Paths) InstallDir(scope manifest.Scope) string {
	if scope == manifest.ScopeSystem {
		return p.SystemInstallDir
	}
	return p.UserInstallDir
}

// IndexFile returns the path of the scope's index.json.
func (p Paths) IndexFile(scope manifest.Scope) string {
	return filepath.Join(p.InstallDir(scope), IndexFileName)
}

// ServerDir returns the install directory of a single server in the scope.
func (p Paths) ServerDir(scope manifest.Scope, id string) string {
	return filepath.Join(p.InstallDir(scope), id)
}

// ManifestFile returns the manifest.json path of a single server in the scope.
func (p Paths) ManifestFile(scope manifest.Scope, id string) string {
	return filepath.Join(p.ServerDir(scope, id), ManifestFileName)
}

// ScopeOf reports which scope's install directory contains path.
// User scope is checked first, so nested configurations resolve to the user.
func (p Paths) ScopeOf(path string) (manifest.Scope, bool) {
	for _, s := range manifest.Scopes() {
		if files.IsWithin(p.InstallDir(s), path) {
			return s, true
		}
	}
	return "", false
}

// ValidateID checks that a server ID can be used as a single directory name inside an install directory.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: server id cannot be empty", dmcperrors.ErrInvalidInput)
	case id != strings.TrimSpace(id):
		return fmt.Errorf("%w: server id '%s' has leading or trailing whitespace", dmcperrors.ErrInvalidInput, id)
	case id == "." || id == "..":
		return fmt.Errorf("%w: server id '%s' is not allowed", dmcperrors.ErrInvalidInput, id)
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, os.PathSeparator):
		return fmt.Errorf("%w: server id '%s' cannot contain path separators", dmcperrors.ErrInvalidInput, id)
	case id == IndexFileName:
		return fmt.Errorf("%w: server id '%s' is reserved", dmcperrors.ErrInvalidInput, id)
	}
	return nil
}

func resolvePath(envVar string, setting string, fallback string) (string, error) {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		value = strings.TrimSpace(setting)
	}
	if value == "" {
		return filepath.Clean(fallback), nil
	}

	expanded, err := files.ExpandHome(value)
	if err != nil {
		return "", fmt.Errorf("failed to resolve '%s': %w", envVar, err)
	}

	return filepath.Clean(expanded), nil
}
