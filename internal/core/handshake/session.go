package handshake

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// ============================================================================
//                              Session - 协议识别会话
// ============================================================================

// sniffResult 首行读取结果
type sniffResult struct {
	line  string
	proto types.Protocol
	err   error
}

// Session 默认握手会话
//
// 读取首行（受 HandshakeTimeout 和 MaxGreetingSize 约束）并识别协议，
// 识别成功后把连接移交给 Dispatcher。读取在独立协程中进行，Advance 不阻塞。
type Session struct {
	id            types.SessionID
	remote        types.Endpoint
	dir           types.Direction
	createdAt     time.Time
	transferIndex uint32

	cfg        sessionConfig
	dispatcher interfaces.Dispatcher
	notify     func()

	// result 容量为 1，读协程写入后退出
	result chan sniffResult

	mu        sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	handedOff bool
	closed    bool
}

var (
	_ interfaces.Session         = (*Session)(nil)
	_ interfaces.OutboundSession = (*Session)(nil)
)

// sessionConfig 会话使用的配置子集
type sessionConfig struct {
	handshakeTimeout time.Duration
	connectTimeout   time.Duration
	maxGreeting      int
	guid             types.ClientGUID
}

// ID 实现 interfaces.Session
func (s *Session) ID() types.SessionID { return s.id }

// RemoteEndpoint 实现 interfaces.Session
func (s *Session) RemoteEndpoint() types.Endpoint { return s.remote }

// Direction 实现 interfaces.Session
func (s *Session) Direction() types.Direction { return s.dir }

// CreatedAt 实现 interfaces.Session
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Initiate 建立推送连接并发送 GIV 应答
//
// 连接超时为 ConnectTimeout，ctx 取消时立即返回。
func (s *Session) Initiate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	d := net.Dialer{Timeout: s.cfg.connectTimeout}
	conn, err := d.DialContext(ctx, "tcp4", s.remote.String())
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.remote, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.connectTimeout))
	if _, err := fmt.Fprintf(conn, "GIV %d:%s/\n\n", s.transferIndex, s.cfg.guid); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send push greeting: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrSessionClosed
	}
	s.conn = conn
	s.reader = bufio.NewReaderSize(conn, s.cfg.maxGreeting)
	s.mu.Unlock()

	go s.sniff(conn, s.reader)
	return nil
}

// Advance 实现 interfaces.Session
func (s *Session) Advance() types.AdvanceResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.handedOff || s.conn == nil {
		return types.Done
	}

	var res sniffResult
	select {
	case res = <-s.result:
	default:
		return types.StillAlive
	}

	if res.err != nil {
		logger.Debug("握手失败", "session", s.id.Short(), "remote", s.remote, "error", res.err)
		s.closeLocked()
		return types.Done
	}
	if res.proto == types.ProtocolUnknown {
		logger.Debug("无法识别的握手", "session", s.id.Short(), "remote", s.remote,
			"greeting", truncate(res.line, 32))
		s.closeLocked()
		return types.Done
	}

	h := interfaces.Handoff{
		Conn:          s.conn,
		Reader:        s.reader,
		Remote:        s.remote,
		Direction:     s.dir,
		Protocol:      res.proto,
		Greeting:      res.line,
		TransferIndex: s.transferIndex,
	}
	if s.dispatcher != nil && s.dispatcher.Dispatch(h) {
		s.handedOff = true
		logger.Debug("握手完成，连接已移交", "session", s.id.Short(), "protocol", res.proto)
		return types.Done
	}

	s.closeLocked()
	return types.Done
}

// Close 实现 interfaces.Session
//
// 已移交的连接不会被关闭。
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.handedOff || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// sniff 读取首行并通知调度器
func (s *Session) sniff(conn net.Conn, r *bufio.Reader) {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.handshakeTimeout))

	line, err := readGreeting(r, s.cfg.maxGreeting)
	res := sniffResult{line: line, err: err}
	if err == nil {
		res.proto = types.ClassifyGreeting(line)
		_ = conn.SetReadDeadline(time.Time{})
	}

	s.result <- res
	if s.notify != nil {
		s.notify()
	}
}

// readGreeting 读取一行，不含行尾的 \r\n
func readGreeting(r *bufio.Reader, limit int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > limit {
			return "", ErrGreetingTooLong
		}
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", err
		}
	}
	return strings.TrimRight(string(buf), "\r\n"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
