// Package interfaces 定义 go-handshakes 公共接口
//
// 本文件定义握手会话相关接口，对应 internal/core/handshake/ 实现。
package interfaces

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/dep2p/go-handshakes/pkg/types"
)

// Session 握手会话
//
// 每个套接字对应一个会话。会话只由注册表持有；调度器每轮调用一次
// Advance，Advance 不得阻塞：下一步需要等待网络时返回 StillAlive。
type Session interface {
	// ID 会话标识
	ID() types.SessionID

	// RemoteEndpoint 远端端点
	RemoteEndpoint() types.Endpoint

	// Direction 入站 / 出站
	Direction() types.Direction

	// CreatedAt 创建时间
	CreatedAt() time.Time

	// Advance 推进一步协议协商
	Advance() types.AdvanceResult

	// Close 释放会话及其套接字，可重复调用
	Close() error
}

// OutboundSession 出站（推送）会话
type OutboundSession interface {
	Session

	// Initiate 建立出站连接并发送推送问候
	Initiate(ctx context.Context) error
}

// SessionFactory 会话工厂
//
// notify 在会话有新进展（数据到达、连接关闭）时调用，用于唤醒调度器。
type SessionFactory interface {
	// NewInbound 为已接受的入站连接创建会话
	NewInbound(conn net.Conn, remote types.Endpoint, notify func()) Session

	// NewOutbound 创建出站推送会话（尚未连接）
	NewOutbound(remote types.Endpoint, transferIndex uint32, notify func()) OutboundSession
}

// Handoff 握手完成后移交给上层的连接
type Handoff struct {
	// Conn 原始连接
	Conn net.Conn

	// Reader 已缓冲首行之后数据的读取器，上层应继续从它读取
	Reader *bufio.Reader

	// Remote 远端端点
	Remote types.Endpoint

	// Direction 连接方向
	Direction types.Direction

	// Protocol 识别出的协议
	Protocol types.Protocol

	// Greeting 首行内容（不含换行）
	Greeting string

	// TransferIndex 出站推送对应的传输索引
	TransferIndex uint32
}

// Dispatcher 握手完成后的连接分发
type Dispatcher interface {
	// Dispatch 接管连接，返回 false 表示无人接管（连接将被关闭）
	Dispatch(h Handoff) bool
}

// Diagnostic 诊断事件
type Diagnostic struct {
	Kind   types.DiagnosticKind
	Remote types.Endpoint
	Text   string
}

// DiagnosticSink 诊断事件接收方（日志 / 界面层）
type DiagnosticSink interface {
	Emit(d Diagnostic)
}
