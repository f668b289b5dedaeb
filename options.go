package handshakes

import (
	"fmt"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-handshakes/config"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// HandlerFunc 处理握手完成后移交的连接，负责关闭连接
type HandlerFunc = func(h interfaces.Handoff)

// Option 用户配置选项函数
type Option func(*nodeConfig) error

// nodeConfig 节点内部配置
type nodeConfig struct {
	config *config.Config

	registerer prometheus.Registerer
	sinks      []interfaces.DiagnosticSink
	updaters   []interfaces.DiscoveryUpdater
	handlers   map[types.Protocol]HandlerFunc

	userFxOptions []fx.Option
}

func newNodeConfig() *nodeConfig {
	return &nodeConfig{
		config:   config.NewConfig(),
		handlers: make(map[types.Protocol]HandlerFunc),
	}
}

// WithConfig 使用完整的统一配置（覆盖此前的配置选项）
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) error {
		if cfg == nil {
			return fmt.Errorf("配置不能为空")
		}
		c.config = cfg.Clone()
		return nil
	}
}

// WithPreset 应用预设配置：desktop / server / minimal
func WithPreset(name string) Option {
	return func(c *nodeConfig) error {
		return config.ApplyPreset(c.config, name)
	}
}

// WithListenHost 设置监听地址
func WithListenHost(host string) Option {
	return func(c *nodeConfig) error {
		addr, err := netip.ParseAddr(host)
		if err != nil || !addr.Unmap().Is4() {
			return fmt.Errorf("监听地址必须是 IPv4: %q", host)
		}
		c.config.Transport.ListenHost = host
		return nil
	}
}

// WithListenPort 设置监听端口，0 表示由系统分配
func WithListenPort(port int) Option {
	return func(c *nodeConfig) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("端口超出范围: %d", port)
		}
		c.config.Transport.ListenPort = port
		return nil
	}
}

// WithAutoListen 启动时是否自动监听
func WithAutoListen(enable bool) Option {
	return func(c *nodeConfig) error {
		c.config.Transport.AutoListen = enable
		return nil
	}
}

// WithBlockedCIDRs 追加拒绝的网段
func WithBlockedCIDRs(cidrs ...string) Option {
	return func(c *nodeConfig) error {
		for _, cidr := range cidrs {
			if _, err := netip.ParsePrefix(cidr); err != nil {
				return fmt.Errorf("无效网段 %q: %w", cidr, err)
			}
		}
		c.config.Security.BlockedCIDRs = append(c.config.Security.BlockedCIDRs, cidrs...)
		return nil
	}
}

// WithUploadLimits 设置上传槽位上限
func WithUploadLimits(total, perHost int) Option {
	return func(c *nodeConfig) error {
		c.config.Resource.MaxUploads = total
		c.config.Resource.MaxUploadsPerHost = perHost
		return nil
	}
}

// WithMetrics 启用指标并注册到 reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *nodeConfig) error {
		c.config.Diagnostics.EnableMetrics = true
		c.registerer = reg
		return nil
	}
}

// WithDiagnosticSink 追加诊断事件接收方
func WithDiagnosticSink(sink interfaces.DiagnosticSink) Option {
	return func(c *nodeConfig) error {
		if sink == nil {
			return fmt.Errorf("诊断接收方不能为空")
		}
		c.sinks = append(c.sinks, sink)
		return nil
	}
}

// WithDiscoveryUpdater 注册发现更新器
func WithDiscoveryUpdater(u interfaces.DiscoveryUpdater) Option {
	return func(c *nodeConfig) error {
		if u == nil {
			return fmt.Errorf("发现更新器不能为空")
		}
		c.updaters = append(c.updaters, u)
		return nil
	}
}

// WithHandler 注册协议处理器
//
// 未注册 HTTP 处理器时使用内置的上传处理器。
func WithHandler(p types.Protocol, fn HandlerFunc) Option {
	return func(c *nodeConfig) error {
		if p == types.ProtocolUnknown {
			return fmt.Errorf("不能为未知协议注册处理器")
		}
		c.handlers[p] = fn
		return nil
	}
}

// WithFxOption 追加用户自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(c *nodeConfig) error {
		c.userFxOptions = append(c.userFxOptions, opts...)
		return nil
	}
}
