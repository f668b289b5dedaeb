package handshake

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jbenet/goprocess"

	"github.com/dep2p/go-handshakes/internal/core/metrics"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
)

// ============================================================================
//                              Scheduler - 握手调度
// ============================================================================

// Admitter 调度器接受阶段依赖的入站准入
type Admitter interface {
	// AcceptOnce 接受一个待处理连接，没有或被拒绝时返回 false
	AcceptOnce() bool

	// Pending 待处理连接数
	Pending() int

	// Valid 监听器是否仍然有效
	Valid() bool
}

// CycleStats 一轮调度的结果
type CycleStats struct {
	// Accepted 本轮接受的连接数
	Accepted int

	// Pumped 是否获得了注册表锁
	Pumped bool

	// Pump 泵送结果
	Pump PumpStats

	// Stable 本轮稳定性检查是否为稳定
	Stable bool
}

// Scheduler 单个后台工作协程
//
// 每轮：等待唤醒或 WaitTimeout → 接受所有待处理连接 → 限时泵送注册表 →
// 更新稳定性并在稳定时请求发现刷新。
type Scheduler struct {
	waitTimeout     time.Duration
	pumpLockTimeout time.Duration

	clock     clock.Clock
	admitter  Admitter
	registry  *Registry
	tracker   *StabilityTracker
	discovery interfaces.DiscoveryService
	reporter  metrics.Reporter

	// wakeCh 容量为 1，多次唤醒合并
	wakeCh chan struct{}

	mu      sync.Mutex
	proc    goprocess.Process
	running atomic.Bool
}

// Wake 唤醒调度器，不阻塞
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Start 启动工作协程，已启动时无操作
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		return
	}
	s.running.Store(true)
	s.proc = goprocess.Go(s.run)
}

// Stop 通知工作协程退出并等待其结束，未启动时无操作
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	return proc.Close()
}

// Running 工作协程是否在运行
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) run(proc goprocess.Process) {
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 关闭时取消正在进行的泵送
	proc.Go(func(goprocess.Process) {
		select {
		case <-proc.Closing():
		case <-ctx.Done():
		}
		cancel()
	})

	logger.Debug("握手调度器已启动")
	for {
		select {
		case <-proc.Closing():
			logger.Debug("握手调度器已停止")
			return
		case <-s.wakeCh:
		case <-s.clock.After(s.waitTimeout):
		}

		if ctx.Err() != nil {
			return
		}
		if !s.admitter.Valid() {
			logger.Warn("监听器已失效，握手调度器退出")
			return
		}

		s.RunCycle(ctx)
	}
}

// RunCycle 执行一轮调度
func (s *Scheduler) RunCycle(ctx context.Context) CycleStats {
	var cs CycleStats

	for s.admitter.AcceptOnce() {
		cs.Accepted++
	}
	// 被拒绝的连接会中断本轮接受，仍有待处理连接时尽快再来一轮
	if s.admitter.Pending() > 0 {
		s.Wake()
	}

	pctx, cancel := context.WithTimeout(ctx, s.pumpLockTimeout)
	cs.Pump, cs.Pumped = s.registry.Pump(pctx)
	cancel()

	if cs.Pumped {
		s.reporter.SessionsRemoved(cs.Pump.Removed)
		s.reporter.SessionsActive(cs.Pump.Remaining)
	} else {
		logger.Debug("注册表锁竞争，跳过本轮泵送")
		s.reporter.PumpSkipped()
	}

	cs.Stable = s.tracker.Update(s.clock.Now())
	if cs.Stable {
		if since, ok := s.tracker.StableSince(); ok {
			s.reporter.StableSince(since)
		}
		s.discovery.Refresh()
	}
	return cs
}
