//go:build !edtspdebug

package protocol

import (
    "errors"
    "testing"
)

func TestDecodeLengthMismatch(t *testing.T) {
    b := EncodeHeartbeat(1, RoleSlave, 0, 1)
    b[7] = 255
    if _, err := Decode(b); !errors.Is(err, ErrLengthMismatch) {
        t.Fatalf("expected length mismatch, got %v", err)
    }
    if DropReason(ErrLengthMismatch) != "length_mismatch" { t.Fatalf("drop reason") }
}
