package config

import (
	"errors"
	"time"
)

// DiscoveryConfig 发现服务刷新配置
type DiscoveryConfig struct {
	// MinRefreshInterval 两次实际刷新的最小间隔，期间的刷新请求被合并
	MinRefreshInterval Duration `json:"min_refresh_interval" toml:"min_refresh_interval"`

	// UpdateTimeout 单次刷新的超时
	UpdateTimeout Duration `json:"update_timeout" toml:"update_timeout"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		MinRefreshInterval: Duration(30 * time.Second),
		UpdateTimeout:      Duration(10 * time.Second),
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.MinRefreshInterval <= 0 {
		return errors.New("min_refresh_interval must be positive")
	}
	if c.UpdateTimeout <= 0 {
		return errors.New("update_timeout must be positive")
	}
	return nil
}
