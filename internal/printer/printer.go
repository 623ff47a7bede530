// Package printer renders dmcp results as human readable text.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
)

const (
	// indent is the prefix of the detail lines printed under a server ID.
	indent = "        "

	unknown = "?"
)

// hooks holds the optional header and footer functions shared by all printers.
type hooks[T any] struct {
	headerFunc output.WriteFunc[T]
	footerFunc output.WriteFunc[T]
}

func (h *hooks[T]) Header(w io.Writer, count int) {
	if h.headerFunc != nil {
		h.headerFunc(w, count)
	}
}

func (h *hooks[T]) SetHeader(fn output.WriteFunc[T]) {
	h.headerFunc = fn
}

func (h *hooks[T]) Footer(w io.Writer, count int) {
	if h.footerFunc != nil {
		h.footerFunc(w, count)
	}
}

func (h *hooks[T]) SetFooter(fn output.WriteFunc[T]) {
	h.footerFunc = fn
}

// field prints one aligned detail line.
func field(w io.Writer, label string, value string) {
	_, _ = fmt.Fprintf(w, "%s%-12s %s\n", indent, label+":", value)
}

// FormatValue renders a config value: strings as-is, anything else as JSON.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// firstLine returns the first line of s, trimmed.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
