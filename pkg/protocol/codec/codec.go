// Package codec provides the serializers used for status snapshots: JSON for
// humans and HTTP, CBOR for compact dumps, Protobuf (structpb) for tooling.
package codec

import (
    "fmt"
    "strings"
)

const (
    ContentJSON  = "application/json"
    ContentCBOR  = "application/cbor"
    ContentProto = "application/x-protobuf"
)

// Codec defines a simple interface for marshaling typed messages.
// Implementations should be deterministic.
type Codec interface {
    ContentType() string
    Marshal(v any) ([]byte, error)
    Unmarshal(data []byte, v any) error
}

// Registry maps content types and short format names to codecs.
type Registry struct{ byType map[string]Codec }

// NewRegistry constructs a registry preloaded with JSON, CBOR and Protobuf.
func NewRegistry() (*Registry, error) {
    r := &Registry{byType: make(map[string]Codec)}
    r.Register(JSON())
    r.Register(Proto())
    c, err := CBOR()
    if err != nil { return nil, err }
    r.Register(c)
    return r, nil
}

// Register adds a codec.
func (r *Registry) Register(c Codec) { r.byType[c.ContentType()] = c }

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec { return r.byType[contentType] }

// Lookup resolves a config-style format name (json, cbor, proto) or a full
// content type.
func (r *Registry) Lookup(format string) (Codec, error) {
    ct := strings.ToLower(strings.TrimSpace(format))
    switch ct {
    case "", "json":
        ct = ContentJSON
    case "cbor":
        ct = ContentCBOR
    case "proto", "protobuf", "pb":
        ct = ContentProto
    }
    if c := r.Get(ct); c != nil { return c, nil }
    return nil, fmt.Errorf("codec: unknown format %q", format)
}
