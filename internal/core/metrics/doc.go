// Package metrics 提供握手管理的 Prometheus 指标
//
// Collectors 实现 Reporter 接口，把准入、推送、泵送和稳定性事件记录为：
//
//	handshakes_accepted_total              已接受的入站连接
//	handshakes_rejected_total{reason}      被拒绝的入站连接（security / backlog）
//	handshakes_push_total{result}          推送请求结果（ok / busy / failed / not-listening）
//	handshakes_sessions                    当前注册的会话数
//	handshakes_sessions_removed_total      已结束并移除的会话
//	handshakes_pump_skipped_total          因锁竞争跳过的泵送轮次
//	handshakes_stable_since_seconds        首次稳定时间（Unix 秒，0 表示未稳定）
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollectors(reg)
//	c.AcceptedConn()
//
// 指标关闭时使用 metrics.Nop{}。
package metrics
