//go:build edtspdebug

package protocol

import "fmt"

// assertf panics on invariant violations when built with -tags edtspdebug.
func assertf(format string, args ...any) {
    panic(fmt.Sprintf("protocol invariant: "+format, args...))
}
