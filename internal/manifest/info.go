package manifest

import (
	"path/filepath"
)

// Defaults used when a manifest omits display fields.
const (
	DefaultName    = "Unknown"
	DefaultVersion = "?"
)

// ServerInfo is the summary of one installed server produced by discovery.
type ServerInfo struct {
	ID            string        `json:"id"            yaml:"id"`
	Name          string        `json:"name"          yaml:"name"`
	Version       string        `json:"version"       yaml:"version"`
	TransportType TransportType `json:"transportType" yaml:"transport_type"`
	Scope         Scope         `json:"scope"         yaml:"scope"`
	InstallDir    string        `json:"installDir"    yaml:"install_dir"`
}

// NewServerInfo summarizes the manifest m, installed in scope under the index key id.
// manifestPath is used to derive the install directory when the manifest does not record one.
func NewServerInfo(id string, m Manifest, scope Scope, manifestPath string) ServerInfo {
	info := ServerInfo{
		ID:            id,
		Name:          m.Name,
		Version:       m.Version,
		TransportType: m.TransportType(),
		Scope:         scope,
		InstallDir:    m.InstallDir,
	}

	if info.Name == "" {
		info.Name = DefaultName
	}
	if info.Version == "" {
		info.Version = DefaultVersion
	}
	if info.InstallDir == "" {
		info.InstallDir = filepath.Dir(manifestPath)
	}

	return info
}
