package config

var _ Loader = (*DefaultLoader)(nil)

// Loader loads dmcp settings from a file path.
type Loader interface {
	Load(path string) (*Settings, error)
}

// DefaultLoader loads settings from a TOML file on disk.
type DefaultLoader struct{}

// Settings represents the optional settings.toml file structure.
// Every field is optional; unset fields fall back to environment variables or built-in defaults.
type Settings struct {
	// Paths holds overrides for the four locations resolved by the path resolver.
	// Environment variables take precedence over these values.
	Paths PathSettings `toml:"paths"`

	// Elevation configures how privileged operations are delegated.
	Elevation ElevationSettings `toml:"elevation"`
}

// PathSettings overrides the default sources files and install directories.
// Values may start with '~' which is expanded to the invoking user's home directory.
type PathSettings struct {
	UserSources      string `toml:"user_sources,omitempty"`
	UserInstallDir   string `toml:"user_install_dir,omitempty"`
	SystemSources    string `toml:"system_sources,omitempty"`
	SystemInstallDir string `toml:"system_install_dir,omitempty"`
}

// ElevationSettings configures the elevation broker.
type ElevationSettings struct {
	// Broker is the program used to run operations with elevated privileges, e.g. 'pkexec'.
	Broker string `toml:"broker,omitempty"`
}
