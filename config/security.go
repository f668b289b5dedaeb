package config

import (
	"errors"
	"fmt"
	"net/netip"
	"time"
)

// SecurityConfig 入站安全过滤配置
type SecurityConfig struct {
	// BlockedCIDRs 拒绝的地址段
	BlockedCIDRs []string `json:"blocked_cidrs,omitempty" toml:"blocked_cidrs"`

	// AllowedCIDRs 允许的地址段，非空时只接受列表内地址
	AllowedCIDRs []string `json:"allowed_cidrs,omitempty" toml:"allowed_cidrs"`

	// EnableFloodProtection 启用入站洪泛保护
	EnableFloodProtection bool `json:"enable_flood_protection" toml:"enable_flood_protection"`

	// FloodRate 单地址每秒允许的入站连接数
	FloodRate float64 `json:"flood_rate" toml:"flood_rate"`

	// FloodBurst 单地址突发连接数
	FloodBurst int `json:"flood_burst" toml:"flood_burst"`

	// FloodBanDuration 洪泛地址的临时封禁时长
	FloodBanDuration Duration `json:"flood_ban_duration" toml:"flood_ban_duration"`

	// MaxTrackedAddrs 跟踪的地址数上限（限流器与临时封禁）
	MaxTrackedAddrs int `json:"max_tracked_addrs" toml:"max_tracked_addrs"`
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableFloodProtection: true,
		FloodRate:             2,
		FloodBurst:            10,
		FloodBanDuration:      Duration(10 * time.Minute),
		MaxTrackedAddrs:       4096,
	}
}

// Validate 验证安全配置
func (c SecurityConfig) Validate() error {
	for _, cidr := range append(append([]string(nil), c.BlockedCIDRs...), c.AllowedCIDRs...) {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return fmt.Errorf("invalid cidr %q: %w", cidr, err)
		}
	}
	if c.EnableFloodProtection {
		if c.FloodRate <= 0 || c.FloodBurst <= 0 {
			return errors.New("flood_rate and flood_burst must be positive")
		}
		if c.FloodBanDuration <= 0 {
			return errors.New("flood_ban_duration must be positive")
		}
	}
	if c.MaxTrackedAddrs <= 0 {
		return errors.New("max_tracked_addrs must be positive")
	}
	return nil
}
