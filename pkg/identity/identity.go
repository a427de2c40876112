// Package identity loads or generates the persistent 32-bit device id.
package identity

import (
    "crypto/rand"
    "encoding/binary"
    "errors"
    "fmt"
    "io"
    "io/fs"
    "os"
    "path/filepath"

    "go.uber.org/zap"

    "edtsp/pkg/protocol"
)

// IDSize is the on-disk size of a device id (big-endian u32).
const IDSize = 4

// ErrZeroID is returned when a stored or configured id is zero.
var ErrZeroID = errors.New("identity: device id must be non-zero")

// Store persists the device id in a small file so restarts keep the same id.
type Store struct {
    path     string
    override uint32
    rand     io.Reader
    log      *zap.Logger
}

// NewStore returns a Store backed by path. A non-zero override pins the id
// and the file is neither read nor written.
func NewStore(path string, override uint32) *Store {
    return &Store{path: path, override: override, rand: rand.Reader, log: zap.L().Named("identity")}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load returns the persisted id, generating and saving a fresh one when the
// file is missing or unusable.
func (s *Store) Load() (uint32, error) {
    if s.override != 0 {
        s.log.Info("using configured device id", zap.String("id", protocol.FormatID(s.override)))
        return s.override, nil
    }
    id, err := s.read()
    if err == nil {
        s.log.Info("loaded device id", zap.String("id", protocol.FormatID(id)), zap.String("file", s.path))
        return id, nil
    }
    if !errors.Is(err, fs.ErrNotExist) {
        s.log.Warn("stored device id unusable, regenerating", zap.String("file", s.path), zap.Error(err))
    }
    id, err = s.generate()
    if err != nil { return 0, err }
    if err := s.write(id); err != nil {
        // the node can still run with a volatile id
        s.log.Warn("failed to persist device id", zap.String("file", s.path), zap.Error(err))
    }
    s.log.Info("generated new device id", zap.String("id", protocol.FormatID(id)), zap.String("file", s.path))
    return id, nil
}

// Reset removes the persisted id so the next Load generates a new one.
func (s *Store) Reset() error {
    if s.path == "" { return nil }
    if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
        return fmt.Errorf("identity: reset %s: %w", s.path, err)
    }
    s.log.Info("device id reset", zap.String("file", s.path))
    return nil
}

func (s *Store) read() (uint32, error) {
    if s.path == "" { return 0, fs.ErrNotExist }
    b, err := os.ReadFile(s.path)
    if err != nil { return 0, err }
    if len(b) < IDSize { return 0, fmt.Errorf("identity: short id file (%d bytes)", len(b)) }
    id := binary.BigEndian.Uint32(b[:IDSize])
    if id == 0 { return 0, ErrZeroID }
    return id, nil
}

func (s *Store) write(id uint32) error {
    if s.path == "" { return nil }
    if dir := filepath.Dir(s.path); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil { return err }
    }
    var b [IDSize]byte
    binary.BigEndian.PutUint32(b[:], id)
    tmp := s.path + ".tmp"
    if err := os.WriteFile(tmp, b[:], 0o644); err != nil { return err }
    return os.Rename(tmp, s.path)
}

func (s *Store) generate() (uint32, error) {
    var b [IDSize]byte
    for {
        if _, err := io.ReadFull(s.rand, b[:]); err != nil {
            return 0, fmt.Errorf("identity: random: %w", err)
        }
        if id := binary.BigEndian.Uint32(b[:]); id != 0 {
            return id, nil
        }
    }
}
