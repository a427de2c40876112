package codec

import (
    "encoding/json"
    "fmt"

    "google.golang.org/protobuf/proto"
    "google.golang.org/protobuf/types/known/structpb"
)

// Structer is implemented by plain Go values that can render themselves as a
// protobuf Struct, such as status snapshots.
type Structer interface {
    Struct() (*structpb.Struct, error)
}

type protoCodec struct {
    mo proto.MarshalOptions
    uo proto.UnmarshalOptions
}

// Proto returns a Protocol Buffers codec with deterministic marshaling. It
// accepts proto.Message values and Structers; other targets are decoded
// through a google.protobuf.Struct.
func Proto() Codec {
    return protoCodec{
        mo: proto.MarshalOptions{Deterministic: true},
        uo: proto.UnmarshalOptions{DiscardUnknown: true},
    }
}

func (p protoCodec) ContentType() string { return ContentProto }

func (p protoCodec) Marshal(v any) ([]byte, error) {
    switch m := v.(type) {
    case proto.Message:
        return p.mo.Marshal(m)
    case Structer:
        st, err := m.Struct()
        if err != nil { return nil, fmt.Errorf("protobuf: %T to struct: %w", v, err) }
        return p.mo.Marshal(st)
    default:
        return nil, fmt.Errorf("protobuf: cannot marshal %T", v)
    }
}

func (p protoCodec) Unmarshal(data []byte, v any) error {
    if msg, ok := v.(proto.Message); ok {
        return p.uo.Unmarshal(data, msg)
    }
    var st structpb.Struct
    if err := p.uo.Unmarshal(data, &st); err != nil { return err }
    // the Struct carries JSON-shaped values; let encoding/json map them onto v
    b, err := json.Marshal(st.AsMap())
    if err != nil { return err }
    return json.Unmarshal(b, v)
}
