package discovery

import (
	"time"

	"github.com/dep2p/go-handshakes/config"
)

// Config 刷新器配置
type Config struct {
	// MinInterval 两次更新之间的最小间隔
	MinInterval time.Duration

	// UpdateTimeout 单次更新的超时
	UpdateTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建刷新器配置
func ConfigFromUnified(cfg *config.Config) Config {
	dc := config.DefaultDiscoveryConfig()
	if cfg != nil {
		dc = cfg.Discovery
	}
	return Config{
		MinInterval:   dc.MinRefreshInterval.Duration(),
		UpdateTimeout: dc.UpdateTimeout.Duration(),
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MinInterval <= 0 || c.UpdateTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
