package gater

import (
	"errors"
	"time"

	"github.com/dep2p/go-handshakes/config"
)

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("gater: invalid config")

// Config 安全过滤配置
type Config struct {
	// BlockedCIDRs 拒绝的地址段
	BlockedCIDRs []string

	// AllowedCIDRs 允许的地址段，非空时只接受列表内地址
	AllowedCIDRs []string

	// FloodProtection 是否启用洪泛保护
	FloodProtection bool

	// FloodRate 单地址每秒入站连接数
	FloodRate float64

	// FloodBurst 单地址突发连接数
	FloodBurst int

	// BanDuration 临时封禁时长
	BanDuration time.Duration

	// MaxTracked 跟踪地址数上限
	MaxTracked int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建过滤配置
func ConfigFromUnified(cfg *config.Config) Config {
	sc := config.DefaultSecurityConfig()
	if cfg != nil {
		sc = cfg.Security
	}
	return Config{
		BlockedCIDRs:    sc.BlockedCIDRs,
		AllowedCIDRs:    sc.AllowedCIDRs,
		FloodProtection: sc.EnableFloodProtection,
		FloodRate:       sc.FloodRate,
		FloodBurst:      sc.FloodBurst,
		BanDuration:     sc.FloodBanDuration.Duration(),
		MaxTracked:      sc.MaxTrackedAddrs,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MaxTracked <= 0 || c.BanDuration <= 0 {
		return ErrInvalidConfig
	}
	if c.FloodProtection && (c.FloodRate <= 0 || c.FloodBurst <= 0) {
		return ErrInvalidConfig
	}
	return nil
}
