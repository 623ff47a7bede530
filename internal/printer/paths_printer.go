package printer

import (
	"fmt"
	"io"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
)

var _ output.Printer[PathsResult] = (*PathsPrinter)(nil)

// PathsResult is the resolved location of every file and directory dmcp uses.
type PathsResult struct {
	UserSources       string `json:"userSources"       yaml:"user_sources"`
	UserInstallDir    string `json:"userInstallDir"    yaml:"user_install_dir"`
	SystemSources     string `json:"systemSources"     yaml:"system_sources"`
	SystemInstallDir  string `json:"systemInstallDir"  yaml:"system_install_dir"`
	UserIndexExists   bool   `json:"userIndexExists"   yaml:"user_index_exists"`
	SystemIndexExists bool   `json:"systemIndexExists" yaml:"system_index_exists"`
}

type PathsPrinter struct {
	hooks[PathsResult]
}

func (p *PathsPrinter) Item(w io.Writer, r PathsResult) error {
	_, _ = fmt.Fprintf(w, "User sources:        %s\n", r.UserSources)
	_, _ = fmt.Fprintf(w, "User install dir:    %s\n", r.UserInstallDir)
	_, _ = fmt.Fprintf(w, "System sources:      %s\n", r.SystemSources)
	_, _ = fmt.Fprintf(w, "System install dir:  %s\n", r.SystemInstallDir)
	_, _ = fmt.Fprintf(w, "User index exists:   %t\n", r.UserIndexExists)
	_, _ = fmt.Fprintf(w, "System index exists: %t\n", r.SystemIndexExists)
	return nil
}
