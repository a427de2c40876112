package status

import (
    "encoding/json"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/fxamacker/cbor/v2"
    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "google.golang.org/protobuf/proto"
    "google.golang.org/protobuf/types/known/structpb"

    "edtsp/pkg/protocol/codec"
)

func sample() Snapshot {
    s := Snapshot{
        Instance:    NewInstanceID(),
        Self:        "0x00000064",
        SelfID:      100,
        Role:        "MASTER",
        Master:      "0x00000064",
        MasterID:    100,
        NowMS:       6000,
        ActiveCount: 1,
        Capacity:    256,
        Devices: []Device{
            {ID: "0x000000C8", RawID: 200, Role: "MASTER", LastSeenMS: 0, AgeMS: 6000},
            {ID: "0x00000032", RawID: 50, Role: "UNKNOWN", LastSeenMS: 0, AgeMS: 6000},
        },
    }
    s.Sort()
    return s
}

func TestInstanceIDIsUUID(t *testing.T) {
    _, err := uuid.Parse(NewInstanceID())
    require.NoError(t, err)
}

func TestSortAndLines(t *testing.T) {
    s := sample()
    assert.Equal(t, uint32(50), s.Devices[0].RawID)
    lines := s.Lines()
    require.Len(t, lines, 3)
    assert.Contains(t, lines[0], "role=MASTER")
    assert.Contains(t, lines[1], "TIMEOUT")
    assert.True(t, s.IsMaster())
}

func TestEncodeFormats(t *testing.T) {
    reg, err := codec.NewRegistry()
    require.NoError(t, err)
    s := sample()

    b, ct, err := Encode(reg, "json", s)
    require.NoError(t, err)
    assert.Equal(t, codec.ContentJSON, ct)
    var back Snapshot
    require.NoError(t, json.Unmarshal(b, &back))
    assert.Equal(t, s.Devices, back.Devices)

    b, ct, err = Encode(reg, "cbor", s)
    require.NoError(t, err)
    assert.Equal(t, codec.ContentCBOR, ct)
    var cb Snapshot
    require.NoError(t, cbor.Unmarshal(b, &cb))
    assert.Equal(t, s.Self, cb.Self)

    b, ct, err = Encode(reg, "proto", s)
    require.NoError(t, err)
    assert.Equal(t, codec.ContentProto, ct)
    var st structpb.Struct
    require.NoError(t, proto.Unmarshal(b, &st))
    assert.Equal(t, "MASTER", st.Fields["role"].GetStringValue())
    assert.Len(t, st.Fields["devices"].GetListValue().GetValues(), 2)

    var pb Snapshot
    require.NoError(t, reg.Get(codec.ContentProto).Unmarshal(b, &pb))
    assert.Equal(t, s.Devices, pb.Devices)

    _, _, err = Encode(reg, "xml", s)
    assert.Error(t, err)
}

func TestHandler(t *testing.T) {
    reg, err := codec.NewRegistry()
    require.NoError(t, err)
    h := Handler(reg, "json", sample)

    rec := httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
    assert.Equal(t, 200, rec.Code)
    assert.Equal(t, codec.ContentJSON, rec.Header().Get("Content-Type"))
    assert.True(t, strings.Contains(rec.Body.String(), `"self":"0x00000064"`))

    rec = httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest("GET", "/status?format=bogus", nil))
    assert.Equal(t, 400, rec.Code)
}
