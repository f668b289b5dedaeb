// Package gater 实现入站连接的安全过滤
//
// Gater 在完成 accept 之前对远端地址做一次准入判定，依次检查：
//
//   - 临时封禁：手动封禁或洪泛触发的封禁，到期自动解除
//   - 地址过滤：CIDR 黑名单 / 白名单
//   - 洪泛保护：单地址入站连接速率超限时封禁
//
// # 使用示例
//
//	g, _ := gater.New(gater.DefaultConfig())
//	_ = g.BlockCIDR("10.0.0.0/8")
//
//	if g.IsBlocked(addr) {
//	    // 拒绝连接
//	}
package gater
