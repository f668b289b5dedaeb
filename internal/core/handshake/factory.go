package handshake

import (
	"bufio"
	"net"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// Factory 默认会话工厂
type Factory struct {
	cfg        sessionConfig
	clock      clock.Clock
	dispatcher interfaces.Dispatcher
}

var _ interfaces.SessionFactory = (*Factory)(nil)

// NewFactory 创建会话工厂，dispatcher 为空时所有连接在识别后关闭
func NewFactory(cfg Config, dispatcher interfaces.Dispatcher, clk clock.Clock) *Factory {
	if clk == nil {
		clk = clock.New()
	}
	return &Factory{
		cfg: sessionConfig{
			handshakeTimeout: cfg.HandshakeTimeout,
			connectTimeout:   cfg.ConnectTimeout,
			maxGreeting:      cfg.MaxGreetingSize,
			guid:             cfg.ClientGUID,
		},
		clock:      clk,
		dispatcher: dispatcher,
	}
}

func (f *Factory) newSession(remote types.Endpoint, dir types.Direction, notify func()) *Session {
	return &Session{
		id:         types.NewSessionID(),
		remote:     remote,
		dir:        dir,
		createdAt:  f.clock.Now(),
		cfg:        f.cfg,
		dispatcher: f.dispatcher,
		notify:     notify,
		result:     make(chan sniffResult, 1),
	}
}

// NewInbound 实现 interfaces.SessionFactory，立即开始读取首行
func (f *Factory) NewInbound(conn net.Conn, remote types.Endpoint, notify func()) interfaces.Session {
	s := f.newSession(remote, types.DirInbound, notify)
	s.conn = conn
	s.reader = bufio.NewReaderSize(conn, f.cfg.maxGreeting)
	go s.sniff(conn, s.reader)
	return s
}

// NewOutbound 实现 interfaces.SessionFactory
func (f *Factory) NewOutbound(remote types.Endpoint, transferIndex uint32, notify func()) interfaces.OutboundSession {
	s := f.newSession(remote, types.DirOutbound, notify)
	s.transferIndex = transferIndex
	return s
}
