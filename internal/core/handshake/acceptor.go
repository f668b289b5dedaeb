package handshake

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	tec "github.com/jbenet/go-temp-err-catcher"

	"github.com/dep2p/go-handshakes/internal/core/metrics"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// ============================================================================
//                              Acceptor - 入站连接准入
// ============================================================================

// Acceptor 监听入站连接并完成准入
//
// 接受协程阻塞在 Accept 上，把原始连接放入有界队列并唤醒调度器；
// 调度器通过 AcceptOnce 逐个取出连接，经安全过滤后创建入站会话。
type Acceptor struct {
	cfg      Config
	filter   interfaces.SecurityFilter
	factory  interfaces.SessionFactory
	registry *Registry
	tracker  *StabilityTracker
	sink     interfaces.DiagnosticSink
	reporter metrics.Reporter
	wake     func()

	mu       sync.Mutex
	listener *net.TCPListener
	local    types.Endpoint
	pending  chan net.Conn
	pumpDone chan struct{}

	// invalid 监听器已失效（被关闭或出现不可恢复的错误）
	invalid atomic.Bool
	closing atomic.Bool
}

// Listen 绑定监听地址并启动接受协程，已在监听时直接返回
//
// 配置地址绑定失败且不是通配地址时，回退到 0.0.0.0 再试一次。
func (a *Acceptor) Listen() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener != nil {
		if !a.invalid.Load() {
			return nil
		}
		// 失效的监听器：接受协程已退出，回收后重新绑定
		_ = a.listener.Close()
		<-a.pumpDone
		a.listener, a.pumpDone = nil, nil
	}

	l, err := a.bind()
	if err != nil {
		return err
	}

	local, _ := types.EndpointFromNetAddr(l.Addr())
	a.listener = l
	a.local = local
	a.pending = make(chan net.Conn, a.cfg.AcceptBacklog)
	a.pumpDone = make(chan struct{})
	a.invalid.Store(false)
	a.closing.Store(false)

	go a.acceptLoop(l, a.pending, a.pumpDone)

	emit(a.sink, types.DiagListening, local, "")
	return nil
}

// bind 依次尝试配置地址和通配地址
func (a *Acceptor) bind() (*net.TCPListener, error) {
	port := strconv.Itoa(a.cfg.ListenPort)
	addrs := []string{net.JoinHostPort(a.cfg.host(), port)}
	if a.cfg.host() != wildcardHost {
		addrs = append(addrs, net.JoinHostPort(wildcardHost, port))
	}

	lc := net.ListenConfig{Control: listenControl}
	berr := &BindError{}
	for _, addr := range addrs {
		l, err := lc.Listen(context.Background(), "tcp4", addr)
		if err == nil {
			if tl, ok := l.(*net.TCPListener); ok {
				return tl, nil
			}
			_ = l.Close()
			err = fmt.Errorf("不是 TCP 监听器")
		}
		berr.add(addr, err)
		emit(a.sink, types.DiagBindFailed, types.Endpoint{}, fmt.Sprintf("%s: %v", addr, err))
	}
	return nil, berr
}

// acceptLoop 接受协程
func (a *Acceptor) acceptLoop(l *net.TCPListener, pending chan<- net.Conn, done chan<- struct{}) {
	defer close(done)

	var catcher tec.TempErrCatcher
	for {
		conn, err := l.Accept()
		if err != nil {
			if catcher.IsTemporary(err) {
				continue
			}
			if !a.closing.Load() {
				logger.Warn("监听器失效", "error", err)
			}
			a.invalid.Store(true)
			a.wake()
			return
		}

		select {
		case pending <- conn:
		default:
			remote, _ := types.EndpointFromNetAddr(conn.RemoteAddr())
			resetConn(conn)
			emit(a.sink, types.DiagBacklogFull, remote, "")
			a.reporter.RejectedConn(metrics.ReasonBacklog)
		}
		a.wake()
	}
}

// AcceptOnce 取出一个待接受的连接并完成准入
//
// 没有待接受连接或连接被拒绝时返回 false。被安全过滤器拒绝的连接以
// RST 终止，远端看到的是连接失败。
func (a *Acceptor) AcceptOnce() bool {
	a.mu.Lock()
	pending := a.pending
	a.mu.Unlock()
	if pending == nil {
		return false
	}

	var conn net.Conn
	select {
	case conn = <-pending:
	default:
		return false
	}

	remote, err := types.EndpointFromNetAddr(conn.RemoteAddr())
	if err != nil || !remote.IsValid() {
		logger.Debug("无法解析远端地址", "addr", conn.RemoteAddr(), "error", err)
		resetConn(conn)
		return false
	}

	if a.filter != nil && a.filter.IsBlocked(remote.Addr) {
		resetConn(conn)
		emit(a.sink, types.DiagSecurityBlocked, remote, "")
		a.reporter.RejectedConn(metrics.ReasonSecurity)
		return false
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	s := a.factory.NewInbound(conn, remote, a.wake)
	if err := a.registry.Add(s); err != nil {
		_ = s.Close()
		return false
	}

	a.tracker.RecordAccepted()
	a.reporter.AcceptedConn()
	logger.Debug("接受入站连接", "remote", remote, "session", s.ID().Short())
	return true
}

// Pending 待接受连接数
func (a *Acceptor) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Valid 监听器是否有效
func (a *Acceptor) Valid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listener != nil && !a.invalid.Load()
}

// LocalEndpoint 实际监听的端点
func (a *Acceptor) LocalEndpoint() (types.Endpoint, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return types.Endpoint{}, false
	}
	return a.local, true
}

// CloseListener 关闭监听器并等待接受协程退出，待接受队列保持不变
func (a *Acceptor) CloseListener() error {
	a.mu.Lock()
	l, done := a.listener, a.pumpDone
	a.listener, a.pumpDone = nil, nil
	a.mu.Unlock()

	if l == nil {
		return nil
	}

	a.closing.Store(true)
	err := l.Close()
	<-done
	a.invalid.Store(true)
	return err
}

// ResetPending 以 RST 终止所有仍在队列中的连接，返回终止的数量
func (a *Acceptor) ResetPending() int {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	n := 0
	for pending != nil {
		select {
		case c := <-pending:
			resetConn(c)
			n++
		default:
			return n
		}
	}
	return n
}

// resetConn 以 RST 关闭连接
func resetConn(c net.Conn) {
	if tcp, ok := c.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = c.Close()
}
