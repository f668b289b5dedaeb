package discovery

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/lib/log"
)

var logger = log.Logger("core/discovery")

// UpdaterFunc 函数适配器
type UpdaterFunc func(ctx context.Context) error

// Update 实现 interfaces.DiscoveryUpdater
func (f UpdaterFunc) Update(ctx context.Context) error {
	return f(ctx)
}

// Stats 刷新统计
type Stats struct {
	// Requests Refresh 调用次数
	Requests uint64

	// Runs 实际执行的更新轮数
	Runs uint64

	// Throttled 因最小间隔被丢弃的请求数
	Throttled uint64
}

// Refresher 合并、限速的发现刷新器
type Refresher struct {
	cfg     Config
	clock   clock.Clock
	limiter *rate.Limiter

	mu       sync.Mutex
	updaters []interfaces.DiscoveryUpdater
	lastErr  error

	// requests 容量为 1，多余的请求被合并
	requests chan struct{}

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool

	nRequests  atomic.Uint64
	nRuns      atomic.Uint64
	nThrottled atomic.Uint64
}

var _ interfaces.DiscoveryService = (*Refresher)(nil)

// Option 刷新器选项
type Option func(*Refresher)

// WithClock 替换时钟（测试用）
func WithClock(c clock.Clock) Option {
	return func(r *Refresher) {
		r.clock = c
	}
}

// WithUpdaters 预先注册 Updater
func WithUpdaters(us ...interfaces.DiscoveryUpdater) Option {
	return func(r *Refresher) {
		r.updaters = append(r.updaters, us...)
	}
}

// NewRefresher 创建刷新器
func NewRefresher(cfg Config, opts ...Option) (*Refresher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Refresher{
		cfg:      cfg,
		clock:    clock.New(),
		limiter:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		requests: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register 注册 Updater
func (r *Refresher) Register(u interfaces.DiscoveryUpdater) {
	r.mu.Lock()
	r.updaters = append(r.updaters, u)
	r.mu.Unlock()
}

// Refresh 请求一次刷新，不阻塞
func (r *Refresher) Refresh() {
	r.nRequests.Add(1)
	select {
	case r.requests <- struct{}{}:
	default:
	}
}

// Start 启动后台协程
func (r *Refresher) Start(_ context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(ctx)

	logger.Debug("发现刷新器已启动", "minInterval", r.cfg.MinInterval)
	return nil
}

// Stop 停止后台协程并等待其退出
func (r *Refresher) Stop() error {
	if !r.started.CompareAndSwap(true, false) {
		return nil
	}
	r.cancel()
	r.wg.Wait()
	return nil
}

// Stats 返回统计
func (r *Refresher) Stats() Stats {
	return Stats{
		Requests:  r.nRequests.Load(),
		Runs:      r.nRuns.Load(),
		Throttled: r.nThrottled.Load(),
	}
}

// LastError 最近一轮更新的错误
func (r *Refresher) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.requests:
		}

		if !r.limiter.AllowN(r.clock.Now(), 1) {
			r.nThrottled.Add(1)
			continue
		}
		r.runOnce(ctx)
	}
}

// runOnce 依次执行所有 Updater
func (r *Refresher) runOnce(ctx context.Context) {
	r.mu.Lock()
	updaters := append([]interfaces.DiscoveryUpdater(nil), r.updaters...)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.UpdateTimeout)
	defer cancel()

	var errs error
	for _, u := range updaters {
		errs = multierr.Append(errs, u.Update(ctx))
	}
	r.nRuns.Add(1)

	r.mu.Lock()
	r.lastErr = errs
	r.mu.Unlock()

	if errs != nil {
		logger.Warn("发现更新失败", "errors", len(multierr.Errors(errs)), "error", errs)
		return
	}
	logger.Debug("发现更新完成", "updaters", len(updaters))
}
