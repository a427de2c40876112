package codec

import (
    "bytes"
    "encoding/json"
)

type jsonCodec struct{}

// JSON returns a compact JSON codec. HTML escaping is off so device names
// render as announced.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) ContentType() string { return ContentJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) {
    var buf bytes.Buffer
    enc := json.NewEncoder(&buf)
    enc.SetEscapeHTML(false)
    if err := enc.Encode(v); err != nil { return nil, err }
    return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
