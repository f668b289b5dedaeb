// Package gater 实现入站连接的安全过滤
package gater

import (
	"net/netip"
	"sync"
)

// Filter 地址过滤器
type Filter struct {
	mu sync.RWMutex

	// allowed 允许的地址段
	allowed []netip.Prefix

	// blocked 阻止的地址段
	blocked []netip.Prefix

	// defaultAllow 白名单为空时的默认判定
	defaultAllow bool
}

// NewFilter 创建过滤器
func NewFilter(defaultAllow bool) *Filter {
	return &Filter{
		defaultAllow: defaultAllow,
	}
}

// AllowCIDR 允许 CIDR
func (f *Filter) AllowCIDR(cidr string) error {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed = append(f.allowed, prefix.Masked())
	return nil
}

// BlockCIDR 阻止 CIDR
func (f *Filter) BlockCIDR(cidr string) error {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked = append(f.blocked, prefix.Masked())
	return nil
}

// AllowAddr 检查地址是否允许
func (f *Filter) AllowAddr(addr netip.Addr) bool {
	addr = addr.Unmap()

	f.mu.RLock()
	defer f.mu.RUnlock()

	// 黑名单优先
	for _, p := range f.blocked {
		if p.Contains(addr) {
			return false
		}
	}

	if len(f.allowed) > 0 {
		for _, p := range f.allowed {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return f.defaultAllow
}

// Reset 清空地址段
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed = nil
	f.blocked = nil
}
