// Package interfaces 定义 go-handshakes 公共接口
//
// 本文件定义入站安全过滤接口，对应 internal/core/connmgr/gater/ 实现。
package interfaces

import "net/netip"

// SecurityFilter 入站地址准入判定
type SecurityFilter interface {
	// IsBlocked 地址是否被拒绝
	IsBlocked(addr netip.Addr) bool
}
