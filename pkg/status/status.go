// Package status renders point-in-time views of a node's membership table
// and election state for logs, HTTP and offline tooling.
package status

import (
    "encoding/json"
    "fmt"
    "net/http"
    "sort"
    "strings"

    "github.com/google/uuid"
    "google.golang.org/protobuf/types/known/structpb"

    "edtsp/pkg/protocol"
    "edtsp/pkg/protocol/codec"
)

// Device is one row of the membership table.
type Device struct {
    ID         string `json:"id"`
    RawID      uint32 `json:"raw_id"`
    Role       string `json:"role"`
    LastSeenMS uint64 `json:"last_seen_ms"`
    AgeMS      uint64 `json:"age_ms"`
    Active     bool   `json:"active"`
}

// Snapshot is the status of one node at NowMS.
type Snapshot struct {
    Instance    string   `json:"instance"`
    Self        string   `json:"self"`
    SelfID      uint32   `json:"self_id"`
    DeviceName  string   `json:"device_name,omitempty"`
    Interface   string   `json:"interface,omitempty"`
    Role        string   `json:"role"`
    Master      string   `json:"master"`
    MasterID    uint32   `json:"master_id"`
    NowMS       uint64   `json:"now_ms"`
    ActiveCount int      `json:"active_count"` // including self
    Capacity    int      `json:"capacity"`
    Devices     []Device `json:"devices"`
}

// NewInstanceID returns a random id distinguishing process runs; the device
// id survives restarts, the instance id does not.
func NewInstanceID() string { return uuid.NewString() }

// IsMaster reports whether the snapshot's node holds the Master role.
func (s Snapshot) IsMaster() bool { return s.Role == protocol.RoleMaster.String() }

// Sort orders devices by id.
func (s *Snapshot) Sort() {
    sort.Slice(s.Devices, func(i, j int) bool { return s.Devices[i].RawID < s.Devices[j].RawID })
}

// Lines renders a human-readable table, one entry per line.
func (s Snapshot) Lines() []string {
    out := make([]string, 0, len(s.Devices)+2)
    out = append(out, fmt.Sprintf("self %s role=%s master=%s active=%d/%d",
        s.Self, s.Role, s.Master, s.ActiveCount, s.Capacity))
    for _, d := range s.Devices {
        state := "ACTIVE"
        if !d.Active { state = "TIMEOUT" }
        out = append(out, fmt.Sprintf("  %s %-7s %-7s last_seen=%dms ago", d.ID, d.Role, state, d.AgeMS))
    }
    return out
}

func (s Snapshot) String() string { return strings.Join(s.Lines(), "\n") }

// Struct converts the snapshot to a protobuf Struct; it makes Snapshot a
// codec.Structer.
func (s Snapshot) Struct() (*structpb.Struct, error) {
    b, err := json.Marshal(s)
    if err != nil { return nil, err }
    var m map[string]any
    if err := json.Unmarshal(b, &m); err != nil { return nil, err }
    return structpb.NewStruct(m)
}

// Encode serializes the snapshot with the codec selected by format and
// returns the payload and its content type.
func Encode(reg *codec.Registry, format string, s Snapshot) ([]byte, string, error) {
    c, err := reg.Lookup(format)
    if err != nil { return nil, "", err }
    b, err := c.Marshal(s)
    if err != nil { return nil, "", fmt.Errorf("status: encode %s: %w", c.ContentType(), err) }
    return b, c.ContentType(), nil
}

// Handler serves the snapshot returned by src. The format comes from the
// "format" query parameter, else defaultFormat.
func Handler(reg *codec.Registry, defaultFormat string, src func() Snapshot) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        format := r.URL.Query().Get("format")
        if format == "" { format = defaultFormat }
        b, ct, err := Encode(reg, format, src())
        if err != nil {
            http.Error(w, err.Error(), http.StatusBadRequest)
            return
        }
        w.Header().Set("Content-Type", ct)
        _, _ = w.Write(b)
    })
}
