package handshake

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// ============================================================================
//                              测试替身
// ============================================================================

type fakeSession struct {
	id      types.SessionID
	remote  types.Endpoint
	dir     types.Direction
	created time.Time
	conn    net.Conn

	advanceFn func() types.AdvanceResult
	advances  atomic.Int32
	closes    atomic.Int32
}

func newFakeSession(remote types.Endpoint) *fakeSession {
	return &fakeSession{
		id:      types.NewSessionID(),
		remote:  remote,
		dir:     types.DirInbound,
		created: time.Now(),
	}
}

func (s *fakeSession) ID() types.SessionID            { return s.id }
func (s *fakeSession) RemoteEndpoint() types.Endpoint { return s.remote }
func (s *fakeSession) Direction() types.Direction     { return s.dir }
func (s *fakeSession) CreatedAt() time.Time           { return s.created }

func (s *fakeSession) Advance() types.AdvanceResult {
	s.advances.Add(1)
	if s.advanceFn != nil {
		return s.advanceFn()
	}
	return types.StillAlive
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

type fakeOutbound struct {
	*fakeSession
	initiateErr error
	initiates   atomic.Int32

	// started 非空时 Initiate 开始后关闭；gate 非空时 Initiate 阻塞到它被关闭
	started chan struct{}
	gate    chan struct{}
}

func (s *fakeOutbound) Initiate(context.Context) error {
	s.initiates.Add(1)
	if s.started != nil {
		close(s.started)
	}
	if s.gate != nil {
		<-s.gate
	}
	return s.initiateErr
}

// fakeFactory 记录创建的所有会话
type fakeFactory struct {
	mu       sync.Mutex
	inbound  []*fakeSession
	outbound []*fakeOutbound

	// onInbound 按创建顺序（从 0 开始）定制入站会话
	onInbound   func(i int, s *fakeSession)
	initiateErr error

	// initiateStarted / initiateGate 传给下一个出站会话
	initiateStarted chan struct{}
	initiateGate    chan struct{}
}

func (f *fakeFactory) NewInbound(conn net.Conn, remote types.Endpoint, _ func()) interfaces.Session {
	s := newFakeSession(remote)
	s.conn = conn

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onInbound != nil {
		f.onInbound(len(f.inbound), s)
	}
	f.inbound = append(f.inbound, s)
	return s
}

func (f *fakeFactory) NewOutbound(remote types.Endpoint, _ uint32, _ func()) interfaces.OutboundSession {
	s := &fakeOutbound{fakeSession: newFakeSession(remote), initiateErr: f.initiateErr}
	s.dir = types.DirOutbound

	f.mu.Lock()
	s.started, s.gate = f.initiateStarted, f.initiateGate
	f.initiateStarted, f.initiateGate = nil, nil
	f.outbound = append(f.outbound, s)
	f.mu.Unlock()
	return s
}

func (f *fakeFactory) inboundSessions() []*fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSession(nil), f.inbound...)
}

func (f *fakeFactory) outboundSessions() []*fakeOutbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeOutbound(nil), f.outbound...)
}

func (f *fakeFactory) totalInitiates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.outbound {
		n += int(s.initiates.Load())
	}
	return n
}

// fakeFilter 按地址拒绝
type fakeFilter struct {
	mu      sync.Mutex
	blocked map[netip.Addr]bool
	calls   int
}

func (f *fakeFilter) IsBlocked(addr netip.Addr) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.blocked[addr]
}

// fakeUpload 固定结果的上传准入
type fakeUpload struct {
	allow bool
	calls atomic.Int32
}

func (u *fakeUpload) TryReserveSlot(netip.Addr, time.Duration) bool {
	u.calls.Add(1)
	return u.allow
}

// fakeDiscovery 记录刷新次数
type fakeDiscovery struct {
	refreshes atomic.Int32
}

func (d *fakeDiscovery) Refresh() { d.refreshes.Add(1) }

// diagRecorder 记录诊断事件
type diagRecorder struct {
	mu   sync.Mutex
	list []interfaces.Diagnostic
}

func (r *diagRecorder) Emit(d interfaces.Diagnostic) {
	r.mu.Lock()
	r.list = append(r.list, d)
	r.mu.Unlock()
}

func (r *diagRecorder) count(kind types.DiagnosticKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.list {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// ============================================================================
//                              辅助函数
// ============================================================================

var loopback = netip.MustParseAddr("127.0.0.1")

func endpoint(t *testing.T, s string) types.Endpoint {
	t.Helper()
	ep, err := types.ParseEndpoint(s)
	require.NoError(t, err)
	return ep
}

// testConfig 监听 127.0.0.1 的随机端口，缩短所有超时
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ListenHost = "127.0.0.1"
	cfg.ListenPort = 0
	cfg.WaitTimeout = 20 * time.Millisecond
	cfg.PumpLockTimeout = 50 * time.Millisecond
	cfg.HandshakeTimeout = time.Second
	cfg.ConnectTimeout = time.Second
	cfg.PushAdmissionTimeout = 20 * time.Millisecond
	return cfg
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Disconnect() })
	return m
}

func dialManager(t *testing.T, m *Manager) net.Conn {
	t.Helper()
	local, ok := m.ListenAddr()
	require.True(t, ok)
	c, err := net.DialTimeout("tcp4", local.String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
