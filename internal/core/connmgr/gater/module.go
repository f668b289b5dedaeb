package gater

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-handshakes/config"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
)

// Output 模块输出
type Output struct {
	fx.Out

	Gater  *Gater
	Filter interfaces.SecurityFilter
}

// Params 模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 安全过滤 Fx 模块
func Module() fx.Option {
	return fx.Module("gater",
		fx.Provide(provideGater),
	)
}

func provideGater(p Params) (Output, error) {
	g, err := New(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Output{}, err
	}
	return Output{Gater: g, Filter: g}, nil
}
