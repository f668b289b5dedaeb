package handshake

import (
	"context"
	"net/netip"

	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// PumpStats 一轮泵送的结果
type PumpStats struct {
	// Advanced 推进的会话数
	Advanced int

	// Removed 结束并移除的会话数
	Removed int

	// Panicked 推进时 panic 的会话数（也计入 Removed）
	Panicked int

	// Remaining 泵送后剩余的会话数
	Remaining int
}

// Registry 握手会话注册表
//
// 按插入顺序保存会话，同一会话标识至多出现一次。所有成员变更都在
// lock 下进行；lock 是容量为 1 的信号量，既可无限等待也可限时获取。
type Registry struct {
	lock *semaphore.Weighted

	// 以下字段受 lock 保护
	order  []interfaces.Session
	byID   map[types.SessionID]interfaces.Session
	closed bool
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		lock: semaphore.NewWeighted(1),
		byID: make(map[types.SessionID]interfaces.Session),
	}
}

func (r *Registry) acquire() {
	// Background 永不取消，Acquire 只会在获得锁后返回
	_ = r.lock.Acquire(context.Background(), 1)
}

func (r *Registry) release() {
	r.lock.Release(1)
}

// Add 注册会话，注册表已关闭时返回 ErrNotListening
func (r *Registry) Add(s interfaces.Session) error {
	if s == nil {
		return ErrNilSession
	}

	r.acquire()
	defer r.release()

	if r.closed {
		return ErrNotListening
	}
	if _, ok := r.byID[s.ID()]; ok {
		logger.Error("重复注册握手会话", "session", s.ID().Short(), "remote", s.RemoteEndpoint())
		return ErrDuplicateSession
	}
	r.order = append(r.order, s)
	r.byID[s.ID()] = s
	return nil
}

// Remove 注销并释放会话，会话不在注册表中时返回 false
func (r *Registry) Remove(s interfaces.Session) bool {
	if s == nil {
		return false
	}

	r.acquire()
	defer r.release()

	if _, ok := r.byID[s.ID()]; !ok {
		return false
	}
	for i, cur := range r.order {
		if cur.ID() == s.ID() {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.byID, s.ID())
	closeSession(s)
	return true
}

// Contains 是否存在远端地址为 addr 的会话（忽略端口）
func (r *Registry) Contains(addr netip.Addr) bool {
	r.acquire()
	defer r.release()

	for _, s := range r.order {
		if s.RemoteEndpoint().SameAddr(addr) {
			return true
		}
	}
	return false
}

// ForEach 按插入顺序遍历会话，fn 返回 false 时停止
//
// 遍历期间持有锁，fn 不得调用注册表的其他方法。
func (r *Registry) ForEach(fn func(interfaces.Session) bool) {
	r.acquire()
	defer r.release()

	for _, s := range r.order {
		if !fn(s) {
			return
		}
	}
}

// Len 会话数
func (r *Registry) Len() int {
	r.acquire()
	defer r.release()
	return len(r.order)
}

// Sessions 返回会话快照
func (r *Registry) Sessions() []interfaces.Session {
	r.acquire()
	defer r.release()
	return append([]interfaces.Session(nil), r.order...)
}

// Clear 释放并移除所有会话，返回移除数量和关闭错误
func (r *Registry) Clear() (int, error) {
	r.acquire()
	defer r.release()
	return r.clearLocked()
}

// Close 释放所有会话并拒绝后续 Add，直到 Reopen
//
// hooks 在释放会话后、仍持有锁时依次执行。
func (r *Registry) Close(hooks ...func()) (int, error) {
	r.acquire()
	defer r.release()

	r.closed = true
	n, err := r.clearLocked()
	for _, h := range hooks {
		h()
	}
	return n, err
}

// Reopen 重新允许 Add
func (r *Registry) Reopen() {
	r.acquire()
	r.closed = false
	r.release()
}

func (r *Registry) clearLocked() (int, error) {
	var errs error
	n := len(r.order)
	for _, s := range r.order {
		errs = multierr.Append(errs, s.Close())
	}
	r.order = nil
	r.byID = make(map[types.SessionID]interfaces.Session)
	return n, errs
}

// Pump 推进所有会话一步
//
// 在 ctx 到期前无法获得锁时返回 false，本轮不推进任何会话。
// 返回 Done 或推进时 panic 的会话被移除并释放，其余会话保持原有顺序。
func (r *Registry) Pump(ctx context.Context) (PumpStats, bool) {
	if err := r.lock.Acquire(ctx, 1); err != nil {
		return PumpStats{}, false
	}
	defer r.release()

	var st PumpStats
	kept := r.order[:0]
	for _, s := range r.order {
		res, panicked := advance(s)
		st.Advanced++
		if panicked {
			st.Panicked++
		}
		if res == types.Done {
			delete(r.byID, s.ID())
			closeSession(s)
			st.Removed++
			continue
		}
		kept = append(kept, s)
	}
	// 释放尾部引用
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
	st.Remaining = len(kept)
	return st, true
}

// advance 推进单个会话，panic 视为 Done
func advance(s interfaces.Session) (res types.AdvanceResult, panicked bool) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("握手会话推进时 panic", "session", s.ID().Short(), "panic", p)
			res, panicked = types.Done, true
		}
	}()
	return s.Advance(), false
}

func closeSession(s interfaces.Session) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("释放握手会话时 panic", "session", s.ID().Short(), "panic", p)
		}
	}()
	if err := s.Close(); err != nil {
		logger.Debug("释放握手会话出错", "session", s.ID().Short(), "error", err)
	}
}
