package printer

import (
	"fmt"
	"io"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

var (
	_ output.Printer[manifest.ServerInfo] = (*ServerListPrinter)(nil)
	_ output.EmptyPrinter                 = (*ServerListPrinter)(nil)
)

// ServerListPrinter prints installed servers, one block per server.
type ServerListPrinter struct {
	hooks[manifest.ServerInfo]
}

func (p *ServerListPrinter) Item(w io.Writer, s manifest.ServerInfo) error {
	_, _ = fmt.Fprintln(w, s.ID)
	_, _ = fmt.Fprintf(w, "%sName:      %s\n", indent, s.Name)
	_, _ = fmt.Fprintf(w, "%sVersion:   %s\n", indent, s.Version)
	_, _ = fmt.Fprintf(w, "%sTransport: %s\n", indent, s.TransportType)
	_, _ = fmt.Fprintf(w, "%sScope:     %s\n", indent, s.Scope)
	_, _ = fmt.Fprintf(w, "%sInstall:   %s\n", indent, s.InstallDir)
	_, _ = fmt.Fprintln(w)

	return nil
}

func (p *ServerListPrinter) Empty(w io.Writer) {
	_, _ = fmt.Fprintln(w, "No MCP servers installed.")
}
