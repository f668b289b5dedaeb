package handshake

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-handshakes/config"
	"github.com/dep2p/go-handshakes/internal/core/metrics"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// Params 握手管理器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	Filter     interfaces.SecurityFilter   `optional:"true"`
	Upload     interfaces.UploadAdmission  `optional:"true"`
	Discovery  interfaces.DiscoveryService `optional:"true"`
	Factory    interfaces.SessionFactory   `optional:"true"`
	Dispatcher interfaces.Dispatcher
	Reporter   metrics.Reporter `optional:"true"`

	// Sinks 通过 group:"diagnostic_sinks" 注册的诊断接收方
	Sinks []interfaces.DiagnosticSink `group:"diagnostic_sinks"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// RouterOutput 路由器输出
type RouterOutput struct {
	fx.Out

	Router     *Router
	Dispatcher interfaces.Dispatcher
}

// Module 握手管理 Fx 模块
//
// AutoListen 为 true 时在启动阶段开始监听，停止阶段总是断开。
func Module() fx.Option {
	return fx.Module("handshake",
		fx.Provide(
			ProvideRouter,
			ProvideManager,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRouter 提供协议路由器
func ProvideRouter() RouterOutput {
	r := NewRouter()
	return RouterOutput{Router: r, Dispatcher: r}
}

// ProvideManager 提供握手管理器
func ProvideManager(p Params) (*Manager, error) {
	opts := []Option{
		WithSecurityFilter(p.Filter),
		WithUploadAdmission(p.Upload),
		WithDiscovery(p.Discovery),
		WithDispatcher(p.Dispatcher),
		WithReporter(p.Reporter),
	}
	if p.Factory != nil {
		opts = append(opts, WithSessionFactory(p.Factory))
	}
	for _, s := range p.Sinks {
		opts = append(opts, WithDiagnosticSink(s))
	}
	return NewManager(ConfigFromUnified(p.UnifiedCfg), opts...)
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if !m.cfg.AutoListen {
				return nil
			}
			return m.Listen()
		},
		OnStop: func(_ context.Context) error {
			return m.Disconnect()
		},
	})
}
