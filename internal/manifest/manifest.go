package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
)

// Well known manifest keys.
const (
	KeyID         = "id"
	KeyName       = "name"
	KeySummary    = "summary"
	KeyVersion    = "version"
	KeyTransports = "transports"
	KeyConfig     = "config"
	KeyInstallDir = "installDir"
	KeySource     = "source"
	KeyScope      = "scope"
)

// Manifest is the typed view of an installed server's manifest.json.
// Every field is optional on disk: the index key, not ID, identifies the server.
type Manifest struct {
	ID           string         `json:"id,omitempty"           yaml:"id,omitempty"`
	Name         string         `json:"name,omitempty"         yaml:"name,omitempty"`
	Summary      string         `json:"summary,omitempty"      yaml:"summary,omitempty"`
	Version      string         `json:"version,omitempty"      yaml:"version,omitempty"`
	Description  string         `json:"description,omitempty"  yaml:"description,omitempty"`
	Author       string         `json:"author,omitempty"       yaml:"author,omitempty"`
	Homepage     string         `json:"homepage,omitempty"     yaml:"homepage,omitempty"`
	Transports   []Transport    `json:"transports,omitempty"   yaml:"transports,omitempty"`
	Config       map[string]any `json:"config,omitempty"       yaml:"config,omitempty"`
	InstallDir   string         `json:"installDir,omitempty"   yaml:"installDir,omitempty"`
	Categories   []string       `json:"categories,omitempty"   yaml:"categories,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Permissions  []string       `json:"permissions,omitempty"  yaml:"permissions,omitempty"`
	Tools        []any          `json:"tools,omitempty"        yaml:"tools,omitempty"`
}

// Source is the origin of a stdio server's files, as declared by a registry descriptor.
type Source struct {
	URL  string `json:"url"`
	Path string `json:"path,omitempty"`
	Ref  string `json:"ref,omitempty"`
}

// FirstTransport returns the authoritative (first) transport.
func (m Manifest) FirstTransport() (Transport, bool) {
	if len(m.Transports) == 0 {
		return Transport{}, false
	}
	return m.Transports[0], true
}

// TransportType returns the type of the first transport, or TransportUnknown.
func (m Manifest) TransportType() TransportType {
	t, ok := m.FirstTransport()
	if !ok {
		return TransportUnknown
	}
	return t.Type
}

// ReadDocument reads and parses the JSON object stored at path.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", dmcperrors.ErrSerialization, path, err)
	}

	return doc, nil
}

// Load reads the manifest at path and returns its typed view.
func Load(path string) (Manifest, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return Manifest{}, err
	}

	m, err := doc.Manifest()
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// Manifest decodes the document into the typed view.
func (d *Document) Manifest() (Manifest, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: invalid manifest: %w", dmcperrors.ErrSerialization, err)
	}

	return m, nil
}

// ID returns the document's id field, or an empty string.
func (d *Document) ID() string {
	return d.String(KeyID)
}

// SetID sets the document's id field.
func (d *Document) SetID(id string) error {
	return d.Set(KeyID, id)
}

// Transports decodes the transports array.
// An absent or null field yields no transports and no error.
func (d *Document) Transports() ([]Transport, error) {
	var ts []Transport
	if _, err := d.Decode(KeyTransports, &ts); err != nil {
		return nil, fmt.Errorf("%w: %w", dmcperrors.ErrInvalidInput, err)
	}
	return ts, nil
}

// SetTransports replaces the transports array.
func (d *Document) SetTransports(ts ...Transport) error {
	return d.Set(KeyTransports, ts)
}

// Source decodes the source object of a registry descriptor.
func (d *Document) Source() (Source, bool, error) {
	var s Source
	ok, err := d.Decode(KeySource, &s)
	if err != nil {
		return Source{}, ok, fmt.Errorf("%w: %w", dmcperrors.ErrInvalidInput, err)
	}
	return s, ok, nil
}

// SetInstallDir records the directory the server was installed into.
func (d *Document) SetInstallDir(dir string) error {
	return d.Set(KeyInstallDir, dir)
}

// EnsureConfig adds an empty config object when the document has none.
// An existing config that is not an object is an error.
func (d *Document) EnsureConfig() error {
	raw, ok := d.Get(KeyConfig)
	if !ok || isNull(raw) {
		d.SetRaw(KeyConfig, json.RawMessage(`{}`))
		return nil
	}

	if _, err := d.config(); err != nil {
		return err
	}

	return nil
}

// SetConfigValue stores value as a string under key in the config object, creating the object when absent.
// Other config entries keep their order and values.
func (d *Document) SetConfigValue(key string, value string) error {
	if err := d.EnsureConfig(); err != nil {
		return err
	}

	cfg, err := d.config()
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	return d.Set(KeyConfig, cfg)
}

func (d *Document) config() (*Document, error) {
	raw, _ := d.Get(KeyConfig)
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		return nil, fmt.Errorf("%w: manifest field 'config' is not an object", dmcperrors.ErrInvalidInput)
	}

	cfg, err := ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest field 'config': %w", dmcperrors.ErrInvalidInput, err)
	}

	return cfg, nil
}
