package config

import (
	"errors"
	"time"

	"github.com/dep2p/go-handshakes/pkg/types"
)

// HandshakeConfig 握手调度配置
type HandshakeConfig struct {
	// WaitTimeout 调度循环单次等待上限，保证无网络事件时也定期推进
	WaitTimeout Duration `json:"wait_timeout" toml:"wait_timeout"`

	// PumpLockTimeout 推进阶段获取注册表锁的等待上限，超时跳过本轮
	PumpLockTimeout Duration `json:"pump_lock_timeout" toml:"pump_lock_timeout"`

	// HandshakeTimeout 单个会话完成握手的时限
	HandshakeTimeout Duration `json:"handshake_timeout" toml:"handshake_timeout"`

	// MaxGreetingSize 首行最大字节数
	MaxGreetingSize int `json:"max_greeting_size" toml:"max_greeting_size"`

	// ClientGUID 推送应答使用的客户端 GUID（32 位十六进制），为空时随机生成
	ClientGUID string `json:"client_guid,omitempty" toml:"client_guid"`
}

// DefaultHandshakeConfig 返回默认握手配置
func DefaultHandshakeConfig() HandshakeConfig {
	return HandshakeConfig{
		WaitTimeout:      Duration(time.Second),
		PumpLockTimeout:  Duration(250 * time.Millisecond),
		HandshakeTimeout: Duration(45 * time.Second),
		MaxGreetingSize:  4096,
	}
}

// Validate 验证握手配置
func (c HandshakeConfig) Validate() error {
	if c.WaitTimeout <= 0 {
		return errors.New("wait_timeout must be positive")
	}
	if c.PumpLockTimeout <= 0 {
		return errors.New("pump_lock_timeout must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake_timeout must be positive")
	}
	if c.MaxGreetingSize < 64 {
		return errors.New("max_greeting_size must be at least 64")
	}
	if c.ClientGUID != "" {
		if _, err := types.ParseClientGUID(c.ClientGUID); err != nil {
			return err
		}
	}
	return nil
}
