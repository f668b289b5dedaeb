// Package handshakes 提供 P2P 覆盖网络客户端的连接准入与握手管理
//
// 入站连接经安全过滤后进入握手注册表，由单个后台调度协程驱动到完成；
// 被防火墙阻挡的远端可以请求我们主动推送（GIV）连接，推送前先经上传
// 槽位准入。握手完成（识别出首行协议）后连接按协议移交给注册的处理器。
//
// # 快速开始
//
//	node, err := handshakes.Start(ctx,
//	    handshakes.WithListenPort(6346),
//	    handshakes.WithHandler(types.ProtocolGnutella, func(h interfaces.Handoff) {
//	        defer h.Conn.Close()
//	        // 继续从 h.Reader 读取握手头
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	// 推送请求
//	node.RequestPush(ctx, remote, transferIndex)
//
// # 组件
//
//   - internal/core/handshake: 监听、注册表、调度器、推送
//   - internal/core/connmgr/gater: CIDR 黑白名单、临时封禁、洪泛限速
//   - internal/core/resourcemgr: 上传槽位准入
//   - internal/core/discovery: 合并、限速的发现刷新
//   - internal/core/metrics: Prometheus 指标
package handshakes
