package handshakes

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-handshakes/internal/core/connmgr/gater"
	"github.com/dep2p/go-handshakes/internal/core/discovery"
	"github.com/dep2p/go-handshakes/internal/core/handshake"
	"github.com/dep2p/go-handshakes/internal/core/resourcemgr"
	"github.com/dep2p/go-handshakes/pkg/lib/log"
	"github.com/dep2p/go-handshakes/pkg/types"
)

var logger = log.Logger("handshakes")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateRunning 运行中
	StateRunning

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 10 * time.Second
)

// Stats 节点状态快照
type Stats struct {
	handshake.Stats

	// ActiveUploads 当前上传数
	ActiveUploads int

	// BannedAddrs 临时封禁的地址数
	BannedAddrs int

	// Refresh 发现刷新统计
	Refresh discovery.Stats
}

// Node 握手节点
//
// Node 是一个门面，聚合握手管理、安全过滤、上传准入和发现刷新。
// 每个 Node 拥有自己的监听器和注册表，同一进程可以运行多个 Node。
type Node struct {
	mu     sync.Mutex
	config *nodeConfig
	app    *fx.App
	state  NodeState

	// 由 Fx 注入
	manager   *handshake.Manager
	router    *handshake.Router
	gater     *gater.Gater
	slots     *resourcemgr.UploadSlots
	refresher *discovery.Refresher
}

// New 创建节点（未启动）
func New(opts ...Option) (*Node, error) {
	cfg := newNodeConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{config: cfg}

	app, err := buildFxApp(cfg, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// Start 启动节点
//
// AutoListen 为 true 时开始监听；监听失败则启动失败。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrNodeClosed
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		logger.Error("节点启动失败", "error", err)
		n.state = StateStopped
		return err
	}
	n.state = StateRunning

	if addr, ok := n.manager.ListenAddr(); ok {
		logger.Info("节点已启动", "listen", addr)
	} else {
		logger.Info("节点已启动（未监听）")
	}
	return nil
}

// Stop 停止节点，断开所有握手会话
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateRunning {
		n.state = StateStopped
		return nil
	}
	n.state = StateStopped

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := n.app.Stop(stopCtx)
	if err != nil {
		logger.Warn("节点停止时出错", "error", err)
	}
	return err
}

// Close 停止节点
func (n *Node) Close() error {
	return n.Stop(context.Background())
}

// State 节点状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              监听与连接
// ════════════════════════════════════════════════════════════════════════════

// Listen 开始监听（AutoListen 关闭时使用）
func (n *Node) Listen() error {
	if n.State() != StateRunning {
		return ErrNotStarted
	}
	return n.manager.Listen()
}

// Disconnect 停止监听并释放所有握手会话，节点继续运行
func (n *Node) Disconnect() error {
	if n.State() != StateRunning {
		return nil
	}
	return n.manager.Disconnect()
}

// IsListening 是否在监听
func (n *Node) IsListening() bool {
	return n.State() == StateRunning && n.manager.IsListening()
}

// ListenAddr 实际监听的端点
func (n *Node) ListenAddr() (types.Endpoint, bool) {
	if n.State() != StateRunning {
		return types.Endpoint{}, false
	}
	return n.manager.ListenAddr()
}

// IsConnectedTo 是否正在与 addr 握手
func (n *Node) IsConnectedTo(addr netip.Addr) bool {
	if n.State() != StateRunning {
		return false
	}
	return n.manager.IsConnectedTo(addr)
}

// RequestPush 向 remote 发起推送连接
func (n *Node) RequestPush(ctx context.Context, remote types.Endpoint, transferIndex uint32) bool {
	if n.State() != StateRunning {
		return false
	}
	return n.manager.RequestPush(ctx, remote, transferIndex)
}

// Handle 注册协议处理器，可在运行中调用
func (n *Node) Handle(p types.Protocol, fn HandlerFunc) {
	n.router.Handle(p, fn)
}

// ════════════════════════════════════════════════════════════════════════════
//                              安全
// ════════════════════════════════════════════════════════════════════════════

// Ban 临时封禁地址，时长为 FloodBanDuration
func (n *Node) Ban(addr netip.Addr) {
	n.gater.Ban(addr)
}

// Unban 解除封禁
func (n *Node) Unban(addr netip.Addr) {
	n.gater.Unban(addr)
}

// BlockCIDR 运行时追加拒绝网段
func (n *Node) BlockCIDR(cidr string) error {
	return n.gater.BlockCIDR(cidr)
}

// ════════════════════════════════════════════════════════════════════════════
//                              状态
// ════════════════════════════════════════════════════════════════════════════

// Stats 返回状态快照
func (n *Node) Stats() Stats {
	return Stats{
		Stats:         n.manager.Stats(),
		ActiveUploads: n.slots.Active(),
		BannedAddrs:   n.gater.BannedCount(),
		Refresh:       n.refresher.Stats(),
	}
}

// LastRefreshError 最近一轮发现更新的错误
func (n *Node) LastRefreshError() error {
	return n.refresher.LastError()
}
