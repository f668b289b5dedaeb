//go:build unix

package handshake

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenControl 在监听套接字上设置 TCP_NODELAY，接受的连接继承该选项
func listenControl(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			opErr = fmt.Errorf("set TCP_NODELAY: %w", err)
		}
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		// 部分系统不允许在监听套接字上设置，接受后会再单独设置
		logger.Debug("设置监听套接字选项失败", "error", opErr)
	}
	return nil
}
