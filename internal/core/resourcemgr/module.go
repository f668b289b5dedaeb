package resourcemgr

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-handshakes/config"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
)

// Params UploadSlots 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Output 模块输出
type Output struct {
	fx.Out

	Slots     *UploadSlots
	Admission interfaces.UploadAdmission
}

// Module 是 resourcemgr 的 Fx 模块
var Module = fx.Module("resourcemgr",
	fx.Provide(ProvideUploadSlots),
	fx.Invoke(registerLifecycle),
)

// ProvideUploadSlots 提供 UploadSlots 实例
func ProvideUploadSlots(p Params) (Output, error) {
	slots, err := NewUploadSlots(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Output{}, err
	}
	return Output{Slots: slots, Admission: slots}, nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, slots *UploadSlots) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return slots.Close()
		},
	})
}
