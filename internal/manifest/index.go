package manifest

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
)

const (
	// IndexFormatVersion is written into freshly created index files.
	IndexFormatVersion = "1.0"

	keyServers = "servers"
	keyUpdated = "updated"
	keyVersion = "version"

	// timestampLayout is RFC 3339 in UTC with nanosecond precision.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// IndexEntry points at the manifest of one installed server.
type IndexEntry struct {
	Location string `json:"location"`
}

// Index is the per-scope registry of installed servers, stored as index.json in the scope's install directory.
// Top-level fields other than servers and updated are preserved when the index is rewritten.
type Index struct {
	doc     *Document
	servers *Document
}

// NewIndex returns an empty index: {"servers": {}, "version": "1.0"}.
func NewIndex() *Index {
	doc := NewDocument()
	doc.SetRaw(keyServers, json.RawMessage(`{}`))
	doc.SetRaw(keyVersion, json.RawMessage(`"`+IndexFormatVersion+`"`))

	return &Index{doc: doc, servers: NewDocument()}
}

// ParseIndex parses index.json content.
// A missing servers object is treated as empty, any malformed entry makes the whole index invalid.
func ParseIndex(data []byte) (*Index, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid index: %w", dmcperrors.ErrSerialization, err)
	}

	servers := NewDocument()
	if raw, ok := doc.Get(keyServers); ok && !isNull(raw) {
		servers, err = ParseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid index field 'servers': %w", dmcperrors.ErrSerialization, err)
		}
	}

	for _, id := range servers.Keys() {
		var entry IndexEntry
		if _, err := servers.Decode(id, &entry); err != nil {
			return nil, fmt.Errorf("%w: invalid index entry '%s': %w", dmcperrors.ErrSerialization, id, err)
		}
	}

	return &Index{doc: doc, servers: servers}, nil
}

// IDs returns the IDs of all indexed servers, sorted.
func (i *Index) IDs() []string {
	ids := i.servers.Keys()
	slices.Sort(ids)
	return ids
}

// Servers returns all index entries keyed by server ID.
func (i *Index) Servers() map[string]IndexEntry {
	out := make(map[string]IndexEntry, i.servers.Len())
	for _, id := range i.servers.Keys() {
		var entry IndexEntry
		_, _ = i.servers.Decode(id, &entry)
		out[id] = entry
	}
	return out
}

// Lookup returns the entry for id.
func (i *Index) Lookup(id string) (IndexEntry, bool) {
	var entry IndexEntry
	ok, err := i.servers.Decode(id, &entry)
	if !ok || err != nil {
		return IndexEntry{}, false
	}
	return entry, true
}

// Put adds or replaces the entry for id.
func (i *Index) Put(id string, location string) error {
	return i.servers.Set(id, IndexEntry{Location: location})
}

// Remove deletes the entry for id, reporting whether it was present.
func (i *Index) Remove(id string) bool {
	return i.servers.Delete(id)
}

// Len returns the number of indexed servers.
func (i *Index) Len() int {
	return i.servers.Len()
}

// Touch sets the updated timestamp.
func (i *Index) Touch(now time.Time) error {
	return i.doc.Set(keyUpdated, now.UTC().Format(timestampLayout))
}

// Updated returns the raw updated timestamp, if any.
func (i *Index) Updated() string {
	return i.doc.String(keyUpdated)
}

// Marshal returns the on-disk representation of the index.
func (i *Index) Marshal() ([]byte, error) {
	doc := i.doc.Clone()
	if err := doc.Set(keyServers, i.servers); err != nil {
		return nil, fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}

	data, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dmcperrors.ErrSerialization, err)
	}

	return data, nil
}
