package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/sources"
)

var (
	_ output.Printer[sources.Source] = (*SourcePrinter)(nil)
	_ output.EmptyPrinter            = (*SourcePrinter)(nil)
)

// SourcePrinter prints registry sources as a two column table.
// NewSourcePrinter should be used to create instances of SourcePrinter.
type SourcePrinter struct {
	hooks[sources.Source]
}

func NewSourcePrinter() *SourcePrinter {
	p := &SourcePrinter{}
	p.SetHeader(DefaultSourceHeader())
	return p
}

func DefaultSourceHeader() output.WriteFunc[sources.Source] {
	return func(w io.Writer, _ int) {
		_, _ = fmt.Fprintf(w, "%-8s %s\n", "SCOPE", "URL")
		_, _ = fmt.Fprintln(w, strings.Repeat("-", 80))
	}
}

func (p *SourcePrinter) Item(w io.Writer, s sources.Source) error {
	_, _ = fmt.Fprintf(w, "%-8s %s\n", s.Scope, s.URL)
	return nil
}

func (p *SourcePrinter) Empty(w io.Writer) {
	_, _ = fmt.Fprintln(w, "No registry sources configured.")
	_, _ = fmt.Fprintln(w, "Add one with: dmcp sources add <url>")
}
