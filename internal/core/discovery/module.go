package discovery

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-handshakes/config"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// Params 刷新器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	// Updaters 通过 group:"discovery_updaters" 注册的更新器
	Updaters []interfaces.DiscoveryUpdater `group:"discovery_updaters"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// Output 模块输出
type Output struct {
	fx.Out

	Refresher *Refresher
	Service   interfaces.DiscoveryService
}

// Module 发现刷新 Fx 模块
func Module() fx.Option {
	return fx.Module("discovery",
		fx.Provide(ProvideRefresher),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRefresher 提供刷新器
func ProvideRefresher(p Params) (Output, error) {
	r, err := NewRefresher(ConfigFromUnified(p.UnifiedCfg), WithUpdaters(p.Updaters...))
	if err != nil {
		return Output{}, err
	}
	return Output{Refresher: r, Service: r}, nil
}

func registerLifecycle(lc fx.Lifecycle, r *Refresher) {
	lc.Append(fx.Hook{
		OnStart: r.Start,
		OnStop: func(_ context.Context) error {
			return r.Stop()
		},
	})
}
