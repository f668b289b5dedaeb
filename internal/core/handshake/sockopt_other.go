//go:build !unix

package handshake

import "syscall"

// listenControl 非 unix 平台只依赖接受后的 SetNoDelay
func listenControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
