package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingPrinter writes a marker for each call and can fail on one id.
type recordingPrinter struct {
	header, footer int
	seen           []string
	failOn         string
}

func (p *recordingPrinter) Header(w io.Writer, count int) {
	p.header = count
	_, _ = fmt.Fprintf(w, "# %d servers\n", count)
}

func (p *recordingPrinter) SetHeader(WriteFunc[string]) {}

func (p *recordingPrinter) Item(w io.Writer, id string) error {
	p.seen = append(p.seen, id)
	if id == p.failOn {
		return fmt.Errorf("cannot render %s", id)
	}
	_, err := fmt.Fprintln(w, "- "+id)
	return err
}

func (p *recordingPrinter) Footer(w io.Writer, count int) {
	p.footer = count
	_, _ = io.WriteString(w, "# end\n")
}

func (p *recordingPrinter) SetFooter(WriteFunc[string]) {}

type emptyMessagePrinter struct {
	recordingPrinter
}

func (p *emptyMessagePrinter) Empty(w io.Writer) {
	_, _ = io.WriteString(w, "No MCP servers installed.\n")
}

func TestTextHandler_HandleResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := &recordingPrinter{}
	h := NewTextHandler[string](&buf, p)
	require.Equal(t, &buf, h.Writer())

	require.NoError(t, h.HandleResults("com.example.a", "com.example.b"))
	require.Equal(t, "# 2 servers\n- com.example.a\n- com.example.b\n# end\n", buf.String())
	require.Equal(t, 2, p.header)
	require.Equal(t, 2, p.footer)
}

func TestTextHandler_HandleResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewTextHandler[string](&buf, &recordingPrinter{})

	require.NoError(t, h.HandleResult("com.example.a"))
	require.Equal(t, "# 1 servers\n- com.example.a\n# end\n", buf.String())
}

func TestTextHandler_ItemErrorStopsOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := &recordingPrinter{failOn: "com.example.b"}
	h := NewTextHandler[string](&buf, p)

	err := h.HandleResults("com.example.a", "com.example.b", "com.example.c")
	require.EqualError(t, err, "cannot render com.example.b")
	require.Equal(t, []string{"com.example.a", "com.example.b"}, p.seen)
	require.Zero(t, p.footer)
}

func TestTextHandler_Empty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		printer Printer[string]
		want    string
	}{
		{name: "default message", printer: &recordingPrinter{}, want: "No items found\n"},
		{name: "printer message", printer: &emptyMessagePrinter{}, want: "No MCP servers installed.\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, NewTextHandler[string](&buf, tc.printer).HandleResults())
			require.Equal(t, tc.want, buf.String())
		})
	}
}

func TestTextHandler_HandleErrorPassesThrough(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	failure := errors.New("index unreadable")

	require.ErrorIs(t, NewTextHandler[string](&buf, &recordingPrinter{}).HandleError(failure), failure)
	require.Empty(t, buf.String())
}
