// Package interfaces 定义 go-handshakes 的公共接口
//
// 一个接口文件对应一个协作方：
//   - handshake.go - 握手会话、会话工厂、移交分发、诊断事件
//   - connmgr.go   - 入站安全过滤（internal/core/connmgr/gater 实现）
//   - resource.go  - 上传准入控制（internal/core/resourcemgr 实现）
//   - discovery.go - 发现服务刷新（internal/core/discovery 实现）
//
// 本层只依赖 pkg/types，不依赖任何 internal 包。
package interfaces
