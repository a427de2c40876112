//go:build unix

package udp

import "syscall"

// reuseAddr lets several nodes on one host bind the group port.
func reuseAddr(_, _ string, c syscall.RawConn) error {
    var serr error
    err := c.Control(func(fd uintptr) {
        serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
    })
    if err != nil { return err }
    return serr
}
