// Package interfaces 定义 go-handshakes 公共接口
//
// 本文件定义发现服务接口，对应 internal/core/discovery/ 实现。
package interfaces

import "context"

// DiscoveryService 发现服务
type DiscoveryService interface {
	// Refresh 请求刷新，立即返回，可重复调用
	Refresh()
}

// DiscoveryUpdater 实际执行一次发现更新的组件
type DiscoveryUpdater interface {
	Update(ctx context.Context) error
}
