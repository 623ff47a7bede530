package printer

import (
	"fmt"
	"io"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/registry"
)

var (
	_ output.Printer[registry.RegistryServer] = (*RegistryServerPrinter)(nil)
	_ output.EmptyPrinter                     = (*RegistryServerPrinter)(nil)
)

// RegistryServerPrinter prints the servers offered by registries.
type RegistryServerPrinter struct {
	hooks[registry.RegistryServer]
}

func (p *RegistryServerPrinter) Item(w io.Writer, s registry.RegistryServer) error {
	_, _ = fmt.Fprintln(w, s.ID)
	_, _ = fmt.Fprintf(w, "%sName:      %s\n", indent, s.Name)
	_, _ = fmt.Fprintf(w, "%sVersion:   %s\n", indent, s.Version)
	_, _ = fmt.Fprintf(w, "%sTransport: %s\n", indent, s.Transport)
	if summary := firstLine(s.Summary); summary != "" {
		_, _ = fmt.Fprintf(w, "%sSummary:   %s\n", indent, summary)
	}
	_, _ = fmt.Fprintf(w, "%sSource:    %s\n", indent, s.Source)
	_, _ = fmt.Fprintln(w)

	return nil
}

func (p *RegistryServerPrinter) Empty(w io.Writer) {
	_, _ = fmt.Fprintln(w, "No servers found in registries.")
}
