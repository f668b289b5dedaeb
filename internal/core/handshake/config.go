package handshake

import (
	"fmt"
	"time"

	"github.com/dep2p/go-handshakes/config"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// wildcardHost 绑定失败时的回退地址
const wildcardHost = "0.0.0.0"

// Config 握手管理配置
type Config struct {
	// ListenHost 监听地址，空表示 0.0.0.0
	ListenHost string

	// ListenPort 监听端口，0 表示由系统分配
	ListenPort int

	// AutoListen 启动时自动监听
	AutoListen bool

	// AcceptBacklog 待接受连接队列长度
	AcceptBacklog int

	// ConnectTimeout 推送连接的建立超时
	ConnectTimeout time.Duration

	// WaitTimeout 调度器无事件时的等待上限
	WaitTimeout time.Duration

	// PumpLockTimeout 泵送时获取注册表锁的等待上限
	PumpLockTimeout time.Duration

	// HandshakeTimeout 首行握手超时
	HandshakeTimeout time.Duration

	// MaxGreetingSize 首行长度上限
	MaxGreetingSize int

	// PushAdmissionTimeout 推送前上传准入判定的等待上限
	PushAdmissionTimeout time.Duration

	// ClientGUID 推送应答中携带的客户端 GUID
	ClientGUID types.ClientGUID
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建握手配置
//
// 未配置 ClientGUID 时随机生成。
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	t, h := cfg.Transport, cfg.Handshake

	guid := types.NewClientGUID()
	if h.ClientGUID != "" {
		if parsed, err := types.ParseClientGUID(h.ClientGUID); err == nil {
			guid = parsed
		}
	}

	return Config{
		ListenHost:           t.ListenHost,
		ListenPort:           t.ListenPort,
		AutoListen:           t.AutoListen,
		AcceptBacklog:        t.AcceptBacklog,
		ConnectTimeout:       t.ConnectTimeout.Duration(),
		WaitTimeout:          h.WaitTimeout.Duration(),
		PumpLockTimeout:      h.PumpLockTimeout.Duration(),
		HandshakeTimeout:     h.HandshakeTimeout.Duration(),
		MaxGreetingSize:      h.MaxGreetingSize,
		PushAdmissionTimeout: cfg.Resource.PushAdmissionTimeout.Duration(),
		ClientGUID:           guid,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	switch {
	case c.ListenPort < 0 || c.ListenPort > 65535:
		return fmt.Errorf("%w: listen port %d", ErrInvalidConfig, c.ListenPort)
	case c.AcceptBacklog <= 0:
		return fmt.Errorf("%w: accept backlog must be positive", ErrInvalidConfig)
	case c.ConnectTimeout <= 0, c.WaitTimeout <= 0, c.PumpLockTimeout <= 0,
		c.HandshakeTimeout <= 0, c.PushAdmissionTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.MaxGreetingSize < 64:
		return fmt.Errorf("%w: max greeting size %d", ErrInvalidConfig, c.MaxGreetingSize)
	}
	return nil
}

func (c Config) host() string {
	if c.ListenHost == "" {
		return wildcardHost
	}
	return c.ListenHost
}
