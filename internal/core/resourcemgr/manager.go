package resourcemgr

import (
	"context"
	"net/netip"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/lib/log"
)

var logger = log.Logger("core/resourcemgr")

// UploadSlots 上传槽位准入控制
type UploadSlots struct {
	cfg Config

	// lock 传输表锁，支持带超时获取
	lock *semaphore.Weighted

	// 以下字段受 lock 保护
	active map[netip.Addr]int
	total  int

	closed atomic.Bool
}

var _ interfaces.UploadAdmission = (*UploadSlots)(nil)

// NewUploadSlots 创建上传准入控制
func NewUploadSlots(cfg Config) (*UploadSlots, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &UploadSlots{
		cfg:    cfg,
		lock:   semaphore.NewWeighted(1),
		active: make(map[netip.Addr]int),
	}, nil
}

// TryReserveSlot 在 timeout 内判断是否还能向 addr 上传
//
// 锁在 timeout 内无法获得、已关闭或槽位已满时返回 false。
func (u *UploadSlots) TryReserveSlot(addr netip.Addr, timeout time.Duration) bool {
	if u.closed.Load() {
		return false
	}
	if timeout <= 0 {
		timeout = u.cfg.AdmissionTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := u.lock.Acquire(ctx, 1); err != nil {
		logger.Debug("获取传输表锁超时", "addr", addr, "timeout", timeout)
		return false
	}
	defer u.lock.Release(1)

	return u.allowMoreToLocked(addr.Unmap())
}

// allowMoreToLocked 调用方必须持有 lock
func (u *UploadSlots) allowMoreToLocked(addr netip.Addr) bool {
	if u.total >= u.cfg.MaxUploads {
		return false
	}
	return u.active[addr] < u.cfg.MaxUploadsPerHost
}

// BeginUpload 登记一个开始的上传
func (u *UploadSlots) BeginUpload(addr netip.Addr) error {
	if u.closed.Load() {
		return ErrSlotsClosed
	}
	addr = addr.Unmap()

	if err := u.lock.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer u.lock.Release(1)

	if !u.allowMoreToLocked(addr) {
		return ErrUploadLimitExceeded
	}
	u.active[addr]++
	u.total++
	logger.Debug("上传开始", "addr", addr, "total", u.total)
	return nil
}

// EndUpload 登记一个结束的上传
func (u *UploadSlots) EndUpload(addr netip.Addr) {
	addr = addr.Unmap()

	_ = u.lock.Acquire(context.Background(), 1)
	defer u.lock.Release(1)

	n, ok := u.active[addr]
	if !ok {
		logger.Warn("结束未登记的上传", "addr", addr)
		return
	}
	if n <= 1 {
		delete(u.active, addr)
	} else {
		u.active[addr] = n - 1
	}
	u.total--
}

// Active 当前上传总数
func (u *UploadSlots) Active() int {
	_ = u.lock.Acquire(context.Background(), 1)
	defer u.lock.Release(1)
	return u.total
}

// ActiveFor 指定地址的上传数
func (u *UploadSlots) ActiveFor(addr netip.Addr) int {
	_ = u.lock.Acquire(context.Background(), 1)
	defer u.lock.Release(1)
	return u.active[addr.Unmap()]
}

// Close 关闭准入控制，之后所有准入请求被拒绝
func (u *UploadSlots) Close() error {
	u.closed.Store(true)
	return nil
}
