package cmd

// version is set at build time using -ldflags "-X github.com/dmcp-project/dmcp/internal/cmd.version=...".
var version = "dev"

// Version returns the dmcp version.
func Version() string {
	return version
}
