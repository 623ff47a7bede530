package printer

import (
	"io"
	"slices"
	"strings"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
	"github.com/dmcp-project/dmcp/internal/manifest"
)

var _ output.Printer[ServerDetail] = (*ServerDetailPrinter)(nil)

// ServerDetail is an installed server's manifest together with the index key and scope it was found under.
type ServerDetail struct {
	ID       string            `json:"id"       yaml:"id"`
	Scope    manifest.Scope    `json:"scope"    yaml:"scope"`
	Manifest manifest.Manifest `json:"manifest" yaml:"manifest"`
}

// ServerDetailPrinter prints every known field of one installed server.
// Empty optional fields are omitted.
type ServerDetailPrinter struct {
	hooks[ServerDetail]
}

func (p *ServerDetailPrinter) Item(w io.Writer, d ServerDetail) error {
	m := d.Manifest

	_, _ = io.WriteString(w, d.ID+"\n")
	field(w, "Name", or(m.Name, unknown))
	field(w, "Version", or(m.Version, unknown))
	field(w, "Scope", d.Scope.String())

	if s := strings.TrimSpace(m.Summary); s != "" {
		field(w, "Summary", s)
	}

	if strings.TrimSpace(m.Description) != "" {
		_, _ = io.WriteString(w, indent+"Description:\n")
		for _, line := range strings.Split(m.Description, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				_, _ = io.WriteString(w, indent+indent+line+"\n")
			}
		}
	}

	if m.Author != "" {
		field(w, "Author", m.Author)
	}
	if m.Homepage != "" {
		field(w, "Homepage", m.Homepage)
	}
	if len(m.Categories) > 0 {
		field(w, "Categories", strings.Join(m.Categories, ", "))
	}
	if len(m.Capabilities) > 0 {
		field(w, "Capabilities", strings.Join(m.Capabilities, ", "))
	}
	if len(m.Tools) > 0 {
		field(w, "Tools", strings.Join(ToolNames(m.Tools), ", "))
	}
	if len(m.Transports) > 0 {
		field(w, "Transports", FormatTransports(m.Transports))
	}
	if m.InstallDir != "" {
		field(w, "Install", m.InstallDir)
	}

	keys := make([]string, 0, len(m.Config))
	for k := range m.Config {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		field(w, "Config."+k, FormatValue(m.Config[k]))
	}

	return nil
}

// ToolNames extracts tool names from a manifest's tools list.
// Entries are either objects with a name or plain strings; anything else is shown as '?'.
func ToolNames(tools []any) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		switch v := t.(type) {
		case string:
			names = append(names, v)
		case map[string]any:
			name, ok := v["name"].(string)
			if !ok {
				name = unknown
			}
			names = append(names, name)
		default:
			names = append(names, unknown)
		}
	}
	return names
}

// FormatTransports renders transports as 'type (endpoint)' joined by '; '.
func FormatTransports(ts []manifest.Transport) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, string(t.Type)+" ("+t.Endpoint()+")")
	}
	return strings.Join(parts, "; ")
}

func or(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
