package codec

import (
    cbor "github.com/fxamacker/cbor/v2"
)

// Decoder limits for snapshots fetched from other nodes. A snapshot holds at
// most one entry per registry slot.
const (
    cborMaxArray  = 4096
    cborMaxNested = 8
)

type cborCodec struct {
    enc cbor.EncMode
    dec cbor.DecMode
}

// CBOR returns a codec with core deterministic encoding (RFC 8949 4.2.1) and
// a bounded decoder that rejects duplicate map keys.
func CBOR() (Codec, error) {
    em, err := cbor.CoreDetEncOptions().EncMode()
    if err != nil { return nil, err }
    dm, err := cbor.DecOptions{
        DupMapKey:        cbor.DupMapKeyEnforcedAPF,
        MaxArrayElements: cborMaxArray,
        MaxMapPairs:      cborMaxArray,
        MaxNestedLevels:  cborMaxNested,
    }.DecMode()
    if err != nil { return nil, err }
    return cborCodec{enc: em, dec: dm}, nil
}

func (c cborCodec) ContentType() string { return ContentCBOR }

func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
