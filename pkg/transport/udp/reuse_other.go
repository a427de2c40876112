//go:build !unix

package udp

import "syscall"

func reuseAddr(_, _ string, _ syscall.RawConn) error { return nil }
