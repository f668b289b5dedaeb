// Package gater 实现入站连接的安全过滤
package gater

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/lib/log"
)

var logger = log.Logger("core/gater")

// Gater 入站安全过滤器
type Gater struct {
	cfg    Config
	filter *Filter
	clock  clock.Clock

	// bans 临时封禁，到期自动移除
	bans *expirable.LRU[netip.Addr, struct{}]

	// limiters 单地址入站速率限制器
	limitMu  sync.Mutex
	limiters *lru.Cache[netip.Addr, *rate.Limiter]
}

var _ interfaces.SecurityFilter = (*Gater)(nil)

// Option Gater 选项
type Option func(*Gater)

// WithClock 替换时钟（测试用）
func WithClock(c clock.Clock) Option {
	return func(g *Gater) {
		g.clock = c
	}
}

// New 创建过滤器
func New(cfg Config, opts ...Option) (*Gater, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limiters, err := lru.New[netip.Addr, *rate.Limiter](cfg.MaxTracked)
	if err != nil {
		return nil, fmt.Errorf("create limiter cache: %w", err)
	}

	g := &Gater{
		cfg:      cfg,
		filter:   NewFilter(true),
		clock:    clock.New(),
		bans:     expirable.NewLRU[netip.Addr, struct{}](cfg.MaxTracked, nil, cfg.BanDuration),
		limiters: limiters,
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, cidr := range cfg.BlockedCIDRs {
		if err := g.filter.BlockCIDR(cidr); err != nil {
			return nil, fmt.Errorf("block cidr %q: %w", cidr, err)
		}
	}
	for _, cidr := range cfg.AllowedCIDRs {
		if err := g.filter.AllowCIDR(cidr); err != nil {
			return nil, fmt.Errorf("allow cidr %q: %w", cidr, err)
		}
	}

	return g, nil
}

// IsBlocked 判定入站地址是否被拒绝
func (g *Gater) IsBlocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() {
		return true
	}

	if g.IsBanned(addr) {
		return true
	}

	if !g.filter.AllowAddr(addr) {
		return true
	}

	if g.cfg.FloodProtection && !g.allowRate(addr) {
		logger.Warn("入站连接过于频繁，临时封禁", "addr", addr, "duration", g.cfg.BanDuration)
		g.Ban(addr)
		return true
	}

	return false
}

// allowRate 消耗一次单地址入站配额
func (g *Gater) allowRate(addr netip.Addr) bool {
	g.limitMu.Lock()
	defer g.limitMu.Unlock()

	lim, ok := g.limiters.Get(addr)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(g.cfg.FloodRate), g.cfg.FloodBurst)
		g.limiters.Add(addr, lim)
	}
	return lim.AllowN(g.clock.Now(), 1)
}

// Ban 临时封禁地址
func (g *Gater) Ban(addr netip.Addr) {
	g.bans.Add(addr.Unmap(), struct{}{})
}

// Unban 解除封禁
func (g *Gater) Unban(addr netip.Addr) {
	addr = addr.Unmap()
	g.bans.Remove(addr)

	g.limitMu.Lock()
	g.limiters.Remove(addr)
	g.limitMu.Unlock()
}

// IsBanned 是否处于临时封禁
func (g *Gater) IsBanned(addr netip.Addr) bool {
	_, ok := g.bans.Get(addr.Unmap())
	return ok
}

// BlockCIDR 阻止地址段
func (g *Gater) BlockCIDR(cidr string) error {
	return g.filter.BlockCIDR(cidr)
}

// AllowCIDR 允许地址段
func (g *Gater) AllowCIDR(cidr string) error {
	return g.filter.AllowCIDR(cidr)
}

// BannedCount 当前临时封禁数量
func (g *Gater) BannedCount() int {
	return g.bans.Len()
}
