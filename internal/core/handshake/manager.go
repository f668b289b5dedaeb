package handshake

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-handshakes/internal/core/metrics"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/lib/log"
	"github.com/dep2p/go-handshakes/pkg/types"
)

var logger = log.Logger("core/handshake")

// ============================================================================
//                              Manager - 握手管理
// ============================================================================

// Stats 管理器状态快照
type Stats struct {
	Listening   bool
	Sessions    int
	Accepted    uint64
	StableSince time.Time
}

// Manager 握手管理器
//
// 显式构造，生命周期为 Listen → ... → Disconnect，可反复监听。
type Manager struct {
	cfg Config

	registry  *Registry
	tracker   *StabilityTracker
	acceptor  *Acceptor
	scheduler *Scheduler
	push      *PushConnector
	reporter  metrics.Reporter

	// mu 串行化 Listen / Disconnect
	mu sync.Mutex
}

// options 构造选项
type options struct {
	filter     interfaces.SecurityFilter
	upload     interfaces.UploadAdmission
	discovery  interfaces.DiscoveryService
	factory    interfaces.SessionFactory
	dispatcher interfaces.Dispatcher
	sinks      []interfaces.DiagnosticSink
	reporter   metrics.Reporter
	clock      clock.Clock
}

// Option 管理器选项
type Option func(*options)

// WithSecurityFilter 设置入站安全过滤器
func WithSecurityFilter(f interfaces.SecurityFilter) Option {
	return func(o *options) { o.filter = f }
}

// WithUploadAdmission 设置推送前的上传准入
func WithUploadAdmission(u interfaces.UploadAdmission) Option {
	return func(o *options) { o.upload = u }
}

// WithDiscovery 设置发现服务
func WithDiscovery(d interfaces.DiscoveryService) Option {
	return func(o *options) { o.discovery = d }
}

// WithSessionFactory 替换会话工厂
func WithSessionFactory(f interfaces.SessionFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithDispatcher 设置默认会话工厂的连接分发器
func WithDispatcher(d interfaces.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithDiagnosticSink 追加诊断事件接收方，默认写日志
func WithDiagnosticSink(s interfaces.DiagnosticSink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s) }
}

// WithReporter 设置指标记录器
func WithReporter(r metrics.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithClock 替换时钟（测试用）
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

type nopDiscovery struct{}

func (nopDiscovery) Refresh() {}

// NewManager 创建握手管理器
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.reporter == nil {
		o.reporter = metrics.Nop{}
	}
	if o.discovery == nil {
		o.discovery = nopDiscovery{}
	}
	if o.factory == nil {
		o.factory = NewFactory(cfg, o.dispatcher, o.clock)
	}
	var sink interfaces.DiagnosticSink = LogSink{}
	if len(o.sinks) > 0 {
		sink = append(multiSink{LogSink{}}, o.sinks...)
	}

	m := &Manager{
		cfg:      cfg,
		registry: NewRegistry(),
		tracker:  NewStabilityTracker(),
		reporter: o.reporter,
	}

	m.scheduler = &Scheduler{
		waitTimeout:     cfg.WaitTimeout,
		pumpLockTimeout: cfg.PumpLockTimeout,
		clock:           o.clock,
		registry:        m.registry,
		tracker:         m.tracker,
		discovery:       o.discovery,
		reporter:        o.reporter,
		wakeCh:          make(chan struct{}, 1),
	}
	m.acceptor = &Acceptor{
		cfg:      cfg,
		filter:   o.filter,
		factory:  o.factory,
		registry: m.registry,
		tracker:  m.tracker,
		sink:     sink,
		reporter: o.reporter,
		wake:     m.scheduler.Wake,
	}
	m.scheduler.admitter = m.acceptor
	m.push = &PushConnector{
		admissionTimeout: cfg.PushAdmissionTimeout,
		upload:           o.upload,
		factory:          o.factory,
		registry:         m.registry,
		sink:             sink,
		reporter:         o.reporter,
		wake:             m.scheduler.Wake,
		listening:        m.IsListening,
	}
	return m, nil
}

// Listen 开始监听并启动调度器，已在监听时直接返回 nil
//
// 所有地址绑定失败时返回 *BindError（errors.Is(err, ErrBindFailed)），
// 管理器保持未监听状态。
func (m *Manager) Listen() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acceptor.Valid() && m.scheduler.Running() {
		return nil
	}
	// 上一次监听已失效但尚未拆除
	if err := m.teardownLocked(); err != nil {
		logger.Debug("回收失效监听器出错", "error", err)
	}

	m.registry.Reopen()
	if err := m.acceptor.Listen(); err != nil {
		logger.Error("监听失败", "error", err)
		return err
	}
	m.scheduler.Start()

	local, _ := m.acceptor.LocalEndpoint()
	logger.Info("握手管理器开始监听", "addr", local)
	return nil
}

// Disconnect 停止监听并释放所有握手会话
//
// 未监听时无操作，可重复调用。返回关闭过程中的错误汇总；无论是否出错，
// 返回时监听器已释放、调度器已退出、注册表为空。
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teardownLocked()
}

func (m *Manager) teardownLocked() error {
	var errs error
	errs = multierr.Append(errs, m.acceptor.CloseListener())
	errs = multierr.Append(errs, m.scheduler.Stop())
	reset := m.acceptor.ResetPending()

	// 此后 Add 一律失败，仍在拨号的推送无法再注册
	n, err := m.registry.Close(m.tracker.Reset)
	errs = multierr.Append(errs, err)

	m.reporter.SessionsActive(0)
	m.reporter.StableSince(time.Time{})

	if errs != nil {
		logger.Warn("断开时出错", "errors", len(multierr.Errors(errs)), "error", errs)
	}
	if n > 0 || reset > 0 {
		logger.Info("握手管理器已断开", "sessions", n, "pending", reset)
	}
	return errs
}

// IsListening 是否在监听
func (m *Manager) IsListening() bool {
	return m.acceptor.Valid()
}

// ListenAddr 实际监听的端点
func (m *Manager) ListenAddr() (types.Endpoint, bool) {
	return m.acceptor.LocalEndpoint()
}

// IsConnectedTo 是否存在与 addr 的握手会话（忽略端口）
func (m *Manager) IsConnectedTo(addr netip.Addr) bool {
	return m.registry.Contains(addr)
}

// RequestPush 向 remote 发起推送连接
func (m *Manager) RequestPush(ctx context.Context, remote types.Endpoint, transferIndex uint32) bool {
	return m.push.RequestPush(ctx, remote, transferIndex)
}

// Wake 唤醒调度器
func (m *Manager) Wake() {
	m.scheduler.Wake()
}

// Registry 返回会话注册表
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Stats 返回状态快照
func (m *Manager) Stats() Stats {
	since, _ := m.tracker.StableSince()
	return Stats{
		Listening:   m.IsListening(),
		Sessions:    m.registry.Len(),
		Accepted:    m.tracker.Accepted(),
		StableSince: since,
	}
}
