package protocol

import (
    "errors"
    "testing"
)

func TestHeaderRoundtrip(t *testing.T) {
    h := Header{Kind: KindHeartbeat, Source: 0xDEADBEEF, PayloadLen: 255}
    b, err := h.MarshalBinary()
    if err != nil { t.Fatalf("marshal: %v", err) }
    if len(b) != HeaderSize { t.Fatalf("header size = %d", len(b)) }
    if b[0] != 0xED || b[1] != 0x61 { t.Fatalf("magic not big-endian: % x", b[:2]) }
    if b[3] != 0xDE || b[6] != 0xEF { t.Fatalf("source not big-endian: % x", b[3:7]) }

    var h2 Header
    if err := h2.UnmarshalBinary(b); err != nil { t.Fatalf("unmarshal: %v", err) }
    if h2.Magic != Magic || h2.Kind != h.Kind || h2.Source != h.Source || h2.PayloadLen != 255 {
        t.Fatalf("headers differ: %#v vs %#v", h2, h)
    }
}

func TestEncodeHeaderMatchesMarshal(t *testing.T) {
    for k := KindDiscovery; k <= KindData; k++ {
        enc := EncodeHeader(k, 42, 7)
        h := Header{Kind: k, Source: 42, PayloadLen: 7}
        b, _ := h.MarshalBinary()
        if string(enc[:]) != string(b) { t.Fatalf("%s: % x vs % x", k, enc, b) }
    }
}

func TestDecodeHeaderRejects(t *testing.T) {
    good := EncodeHeader(KindDiscovery, 1, 0)

    badMagic := good
    badMagic[1] = 0x62
    if _, err := DecodeHeader(badMagic[:]); !errors.Is(err, ErrInvalidMagic) {
        t.Fatalf("bad magic: got %v", err)
    }
    // byte-swapped magic must not be accepted either
    swapped := good
    swapped[0], swapped[1] = 0x61, 0xED
    if _, err := DecodeHeader(swapped[:]); !errors.Is(err, ErrInvalidMagic) {
        t.Fatalf("swapped magic: got %v", err)
    }
    for _, k := range []byte{0, 6, 0xFF} {
        b := good
        b[2] = k
        if _, err := DecodeHeader(b[:]); !errors.Is(err, ErrInvalidKind) {
            t.Fatalf("kind %d: got %v", k, err)
        }
    }
    if _, err := DecodeHeader(good[:7]); !errors.Is(err, ErrTruncatedPacket) {
        t.Fatalf("short: got %v", err)
    }
}

func TestDecodeRejectsBeforePayload(t *testing.T) {
    // a full heartbeat with corrupted magic must never reach payload decoding
    b := EncodeHeartbeat(9, RoleMaster, 1, 1)
    b[0] = 0
    if p, err := Decode(b); !errors.Is(err, ErrInvalidMagic) || p != nil {
        t.Fatalf("expected invalid magic, got %v %v", p, err)
    }
}
