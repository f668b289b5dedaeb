package config

import (
	"errors"
	"net/netip"
	"time"
)

// TransportConfig 监听与拨号配置
type TransportConfig struct {
	// ListenHost 监听地址（IPv4），绑定失败且不是 0.0.0.0 时回退到 0.0.0.0
	ListenHost string `json:"listen_host" toml:"listen_host"`

	// ListenPort 监听端口，0 表示随机端口
	ListenPort int `json:"listen_port" toml:"listen_port"`

	// AutoListen 启动时自动监听
	AutoListen bool `json:"auto_listen" toml:"auto_listen"`

	// AcceptBacklog 待处理入站连接队列长度
	AcceptBacklog int `json:"accept_backlog" toml:"accept_backlog"`

	// ConnectTimeout 推送连接的拨号超时
	ConnectTimeout Duration `json:"connect_timeout" toml:"connect_timeout"`
}

// DefaultTransportConfig 返回默认监听配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ListenHost:     "0.0.0.0",
		ListenPort:     6346,
		AutoListen:     true,
		AcceptBacklog:  256,
		ConnectTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证监听配置
func (c TransportConfig) Validate() error {
	if c.ListenHost != "" {
		addr, err := netip.ParseAddr(c.ListenHost)
		if err != nil {
			return errors.New("listen_host must be an ip address")
		}
		if !addr.Unmap().Is4() {
			return errors.New("listen_host must be an ipv4 address")
		}
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return errors.New("listen_port must be within [0, 65535]")
	}
	if c.AcceptBacklog <= 0 {
		return errors.New("accept_backlog must be positive")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("connect_timeout must be positive")
	}
	return nil
}
