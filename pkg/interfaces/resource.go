// Package interfaces 定义 go-handshakes 公共接口
//
// 本文件定义上传准入接口，对应 internal/core/resourcemgr/ 实现。
package interfaces

import (
	"net/netip"
	"time"
)

// UploadAdmission 上传槽位准入控制
type UploadAdmission interface {
	// TryReserveSlot 在 timeout 内判断是否还能向 addr 提供上传
	//
	// 拒绝是常规结果，不是错误。
	TryReserveSlot(addr netip.Addr, timeout time.Duration) bool
}
