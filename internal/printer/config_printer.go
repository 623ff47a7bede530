package printer

import (
	"fmt"
	"io"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
)

var (
	_ output.Printer[ConfigEntry] = (*ConfigPrinter)(nil)
	_ output.EmptyPrinter         = (*ConfigPrinter)(nil)
)

// ConfigEntry is one configuration value of an installed server.
type ConfigEntry struct {
	Key   string `json:"key"   yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

// ConfigPrinter prints configuration values as 'key = value' lines,
// or bare values when ValuesOnly is set.
type ConfigPrinter struct {
	hooks[ConfigEntry]
	ValuesOnly bool
}

func (p *ConfigPrinter) Item(w io.Writer, e ConfigEntry) error {
	if p.ValuesOnly {
		_, _ = fmt.Fprintln(w, FormatValue(e.Value))
		return nil
	}

	_, _ = fmt.Fprintf(w, "%s = %s\n", e.Key, FormatValue(e.Value))
	return nil
}

func (p *ConfigPrinter) Empty(w io.Writer) {
	_, _ = fmt.Fprintln(w, "No config set.")
}
