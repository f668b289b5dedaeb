// Package discovery 提供发现刷新调度
//
// Refresher 实现 interfaces.DiscoveryService：
//   - Refresh() 立即返回，多次请求合并为一次待处理请求
//   - 两次实际更新之间至少间隔 MinInterval（golang.org/x/time/rate）
//   - 已注册的 Updater 在后台协程中依次执行，每次更新受 UpdateTimeout 约束
//
// 发现算法本身不在本包范围内，由注册的 Updater 提供。
package discovery
