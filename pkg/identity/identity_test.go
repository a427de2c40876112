package identity

import (
    "bytes"
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoadGeneratesAndPersists(t *testing.T) {
    path := filepath.Join(t.TempDir(), "sub", "id")
    s := NewStore(path, 0)

    id, err := s.Load()
    require.NoError(t, err)
    assert.NotZero(t, id)

    b, err := os.ReadFile(path)
    require.NoError(t, err)
    assert.Len(t, b, IDSize)

    again, err := NewStore(path, 0).Load()
    require.NoError(t, err)
    assert.Equal(t, id, again)
}

func TestLoadSkipsZeroRandom(t *testing.T) {
    s := NewStore(filepath.Join(t.TempDir(), "id"), 0)
    s.rand = bytes.NewReader([]byte{0, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF})
    id, err := s.Load()
    require.NoError(t, err)
    assert.Equal(t, uint32(0xDEADBEEF), id)
}

func TestLoadRegeneratesZeroFile(t *testing.T) {
    path := filepath.Join(t.TempDir(), "id")
    require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644))
    s := NewStore(path, 0)
    s.rand = bytes.NewReader([]byte{0, 0, 0, 7})
    id, err := s.Load()
    require.NoError(t, err)
    assert.Equal(t, uint32(7), id)
}

func TestOverrideBypassesFile(t *testing.T) {
    path := filepath.Join(t.TempDir(), "id")
    id, err := NewStore(path, 0xC0FFEE).Load()
    require.NoError(t, err)
    assert.Equal(t, uint32(0xC0FFEE), id)
    _, err = os.Stat(path)
    assert.True(t, os.IsNotExist(err))
}

func TestReset(t *testing.T) {
    path := filepath.Join(t.TempDir(), "id")
    s := NewStore(path, 0)
    s.rand = bytes.NewReader([]byte{0, 0, 0, 1, 0, 0, 0, 2})
    first, err := s.Load()
    require.NoError(t, err)
    require.NoError(t, s.Reset())
    require.NoError(t, s.Reset())
    second, err := s.Load()
    require.NoError(t, err)
    assert.NotEqual(t, first, second)
}
