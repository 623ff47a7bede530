package printer

import (
	"fmt"
	"io"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/probe"
)

var _ output.Printer[ToolsListResult] = (*ToolsListPrinter)(nil)

// ToolsListResult represents the tools offered by a running server.
type ToolsListResult struct {
	Server string       `json:"server" yaml:"server"`
	Tools  []probe.Tool `json:"tools"  yaml:"tools"`
	Count  int          `json:"count"  yaml:"count"`
}

type ToolsListPrinter struct {
	hooks[ToolsListResult]
}

func (p *ToolsListPrinter) Item(w io.Writer, result ToolsListResult) error {
	_, _ = fmt.Fprintf(w, "Tools for '%s' (%d total):\n", result.Server, result.Count)

	if len(result.Tools) == 0 {
		_, _ = fmt.Fprintln(w, "  (No tools offered)")
		return nil
	}

	// Tools should already be sorted.
	for _, tool := range result.Tools {
		if tool.Description == "" {
			_, _ = fmt.Fprintf(w, "  %s\n", tool.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s - %s\n", tool.Name, firstLine(tool.Description))
	}

	return nil
}
