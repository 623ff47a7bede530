package cmd

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmcp-project/dmcp/internal/cmd/output"
)

func TestAllowedOutputFormats(t *testing.T) {
	t.Parallel()

	formats := AllowedOutputFormats()
	require.Equal(t, OutputFormats{FormatJSON, FormatText, FormatYAML}, formats)
	require.Equal(t, "json, text, yaml", formats.String())
}

func TestOutputFormat_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "json", want: FormatJSON},
		{input: "text", want: FormatText},
		{input: "yaml", want: FormatYAML},
		{input: " YAML ", want: FormatYAML},
		{input: "xml", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			f := FormatText
			err := f.Set(tc.input)
			if tc.wantErr {
				require.ErrorContains(t, err, "must be one of json, text, yaml")
				require.Equal(t, FormatText, f)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, f)
			require.Equal(t, string(tc.want), f.String())
			require.Equal(t, "format", f.Type())
		})
	}
}

type linePrinter struct{}

func (linePrinter) Header(io.Writer, int) {}

func (linePrinter) SetHeader(output.WriteFunc[string]) {}

func (linePrinter) Footer(io.Writer, int) {}

func (linePrinter) SetFooter(output.WriteFunc[string]) {}

func (linePrinter) Item(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}

func TestFormatHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "a\nb\n"},
		{"", "a\nb\n"},
		{FormatJSON, "{\n  \"results\": [\n    \"a\",\n    \"b\"\n  ]\n}\n"},
		{FormatYAML, "results:\n  - a\n  - b\n"},
	}

	for _, tc := range tests {
		t.Run(string(tc.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			h, err := FormatHandler[string](&buf, tc.format, linePrinter{})
			require.NoError(t, err)
			require.NoError(t, h.HandleResults("a", "b"))
			require.Equal(t, tc.want, buf.String())
		})
	}

	_, err := FormatHandler[string](&bytes.Buffer{}, FormatText, nil)
	require.Error(t, err)

	_, err = FormatHandler[string](&bytes.Buffer{}, "xml", linePrinter{})
	require.ErrorContains(t, err, "unsupported output format")
}
