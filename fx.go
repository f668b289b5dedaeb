package handshakes

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-handshakes/internal/core/connmgr/gater"
	"github.com/dep2p/go-handshakes/internal/core/discovery"
	"github.com/dep2p/go-handshakes/internal/core/handshake"
	"github.com/dep2p/go-handshakes/internal/core/metrics"
	"github.com/dep2p/go-handshakes/internal/core/resourcemgr"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置注入
//  2. 协作组件：gater → resourcemgr → discovery → metrics
//  3. handshake（依赖以上全部，AutoListen 时在启动阶段开始监听）
//  4. 用户扩展和 Node 组件注入
func buildFxApp(cfg *nodeConfig, node *Node) (*fx.App, error) {
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg.config),

		gater.Module(),
		resourcemgr.Module,
		discovery.Module(),
		metrics.Module,
		handshake.Module(),
	}

	if cfg.registerer != nil {
		reg := cfg.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	for _, sink := range cfg.sinks {
		modules = append(modules, fx.Provide(fx.Annotate(
			func() interfaces.DiagnosticSink { return sink },
			fx.ResultTags(`group:"diagnostic_sinks"`),
		)))
	}
	for _, u := range cfg.updaters {
		modules = append(modules, fx.Provide(fx.Annotate(
			func() interfaces.DiscoveryUpdater { return u },
			fx.ResultTags(`group:"discovery_updaters"`),
		)))
	}

	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}

	// 处理器必须在 handshake 的 OnStart（监听）之前注册
	modules = append(modules,
		fx.Invoke(registerHandlers(cfg.handlers)),
		fx.Invoke(injectNodeComponents(node)),
	)

	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...), nil
}

// registerHandlers 注册协议处理器
func registerHandlers(handlers map[types.Protocol]HandlerFunc) func(*handshake.Router, *resourcemgr.UploadSlots) {
	return func(router *handshake.Router, slots *resourcemgr.UploadSlots) {
		if _, ok := handlers[types.ProtocolHTTP]; !ok {
			router.Handle(types.ProtocolHTTP, newUploadHandler(slots).Serve)
		}
		for p, fn := range handlers {
			router.Handle(p, fn)
		}
	}
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Manager   *handshake.Manager
	Router    *handshake.Router
	Gater     *gater.Gater
	Slots     *resourcemgr.UploadSlots
	Refresher *discovery.Refresher
}

// injectNodeComponents 把 Fx 构建的组件注入 Node
func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.manager = p.Manager
		node.router = p.Router
		node.gater = p.Gater
		node.slots = p.Slots
		node.refresher = p.Refresher
	}
}
