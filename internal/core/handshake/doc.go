// Package handshake 实现连接准入与握手生命周期管理
//
// 组件：
//   - Acceptor：绑定监听套接字，接受入站连接，经安全过滤后创建入站会话
//   - PushConnector：经上传准入后发起出站推送连接
//   - Registry：握手会话的有序注册表，所有成员变更都在同一把锁下进行
//   - Scheduler：单个后台工作协程，轮流执行接受、泵送和稳定性检查
//   - StabilityTracker：已接受连接计数和首次稳定时间
//   - Manager：对外入口，Listen / Disconnect / RequestPush / IsConnectedTo
//
// 每个存活的套接字恰好对应一个会话，会话只由注册表持有。Advance
// 返回 Done 的会话会被移除并释放；调度器停止后注册表为空。
//
// # 快速开始
//
//	router := handshake.NewRouter()
//	router.Handle(types.ProtocolGnutella, func(h interfaces.Handoff) { ... })
//
//	m, err := handshake.NewManager(handshake.DefaultConfig(),
//	    handshake.WithDispatcher(router),
//	    handshake.WithSecurityFilter(filter),
//	)
//	if err := m.Listen(); err != nil { ... }
//	defer m.Disconnect()
package handshake
