package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TransportStdio     TransportType = "stdio"
	TransportSSE       TransportType = "sse"
	TransportWebSocket TransportType = "websocket"

	// TransportUnknown is reported for servers whose manifest declares no transport.
	TransportUnknown TransportType = "unknown"
)

// TransportType is the discriminator of a Transport.
type TransportType string

// Transport describes how a client talks to an MCP server.
// Only the fields relevant to Type are meaningful:
// stdio uses Command and Args, sse uses URL and websocket uses WSURL.
type Transport struct {
	Type        TransportType `yaml:"type"`
	Command     string        `yaml:"command,omitempty"`
	Args        []string      `yaml:"args,omitempty"`
	URL         string        `yaml:"url,omitempty"`
	WSURL       string        `yaml:"wsUrl,omitempty"`
	Description string        `yaml:"description,omitempty"`
}

type rawTransport struct {
	Type        TransportType `json:"type"`
	Command     *string       `json:"command,omitempty"`
	Args        []string      `json:"args,omitempty"`
	URL         *string       `json:"url,omitempty"`
	WSURL       *string       `json:"wsUrl,omitempty"`
	Description string        `json:"description,omitempty"`
}

// NewStdioTransport returns a stdio transport running command with args.
func NewStdioTransport(command string, args ...string) Transport {
	return Transport{Type: TransportStdio, Command: command, Args: args}
}

// NewSSETransport returns a server-sent events transport.
func NewSSETransport(url string) Transport {
	return Transport{Type: TransportSSE, URL: url}
}

// NewWebSocketTransport returns a websocket transport.
func NewWebSocketTransport(url string) Transport {
	return Transport{Type: TransportWebSocket, WSURL: url}
}

// TransportForURL picks the remote transport matching the URL scheme:
// ws:// and wss:// are websocket, anything else is sse.
func TransportForURL(url string) Transport {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "ws://") || strings.HasPrefix(lower, "wss://") {
		return NewWebSocketTransport(url)
	}
	return NewSSETransport(url)
}

// IsRemote reports whether the transport connects to an already running server.
func (t Transport) IsRemote() bool {
	return t.Type == TransportSSE || t.Type == TransportWebSocket
}

// Endpoint returns the command line or URL the transport points at.
func (t Transport) Endpoint() string {
	switch t.Type {
	case TransportStdio:
		return strings.TrimSpace(strings.Join(append([]string{t.Command}, t.Args...), " "))
	case TransportSSE:
		return t.URL
	case TransportWebSocket:
		return t.WSURL
	default:
		return ""
	}
}

// UnmarshalJSON implements json.Unmarshaler.
// An unknown type, or a known type lacking its required field, is an error.
func (t *Transport) UnmarshalJSON(data []byte) error {
	var raw rawTransport
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Transport{Type: raw.Type, Description: raw.Description}

	switch raw.Type {
	case TransportStdio:
		if raw.Command == nil {
			return fmt.Errorf("transport '%s': missing field 'command'", raw.Type)
		}
		out.Command = *raw.Command
		out.Args = raw.Args
	case TransportSSE:
		if raw.URL == nil {
			return fmt.Errorf("transport '%s': missing field 'url'", raw.Type)
		}
		out.URL = *raw.URL
	case TransportWebSocket:
		if raw.WSURL == nil {
			return fmt.Errorf("transport '%s': missing field 'wsUrl'", raw.Type)
		}
		out.WSURL = *raw.WSURL
	case "":
		return fmt.Errorf("transport: missing field 'type'")
	default:
		return fmt.Errorf("transport: unknown type '%s'", raw.Type)
	}

	*t = out

	return nil
}

// MarshalJSON implements json.Marshaler, emitting only the fields of the transport's type.
func (t Transport) MarshalJSON() ([]byte, error) {
	raw := rawTransport{Type: t.Type, Description: t.Description}

	switch t.Type {
	case TransportStdio:
		raw.Command = &t.Command
		raw.Args = t.Args
	case TransportSSE:
		raw.URL = &t.URL
	case TransportWebSocket:
		raw.WSURL = &t.WSURL
	default:
		return nil, fmt.Errorf("transport: unknown type '%s'", t.Type)
	}

	return json.Marshal(raw)
}
