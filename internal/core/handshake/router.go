package handshake

import (
	"sync"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// HandlerFunc 处理移交的连接，在独立协程中运行，负责关闭连接
type HandlerFunc func(h interfaces.Handoff)

// Router 按协议分发握手完成的连接
type Router struct {
	mu       sync.RWMutex
	handlers map[types.Protocol]HandlerFunc
}

var _ interfaces.Dispatcher = (*Router)(nil)

// NewRouter 创建路由器
func NewRouter() *Router {
	return &Router{handlers: make(map[types.Protocol]HandlerFunc)}
}

// Handle 注册协议处理器，重复注册时覆盖
func (r *Router) Handle(p types.Protocol, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.handlers, p)
		return
	}
	r.handlers[p] = fn
}

// Dispatch 实现 interfaces.Dispatcher
//
// 不阻塞：处理器在新协程中运行。没有处理器时返回 false。
func (r *Router) Dispatch(h interfaces.Handoff) bool {
	r.mu.RLock()
	fn, ok := r.handlers[h.Protocol]
	r.mu.RUnlock()

	if !ok {
		logger.Debug("无协议处理器，拒绝连接", "protocol", h.Protocol, "remote", h.Remote)
		return false
	}
	go fn(h)
	return true
}
