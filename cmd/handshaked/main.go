// Package main 提供 handshaked 命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	handshakes "github.com/dep2p/go-handshakes"
	"github.com/dep2p/go-handshakes/config"
	"github.com/dep2p/go-handshakes/pkg/lib/log"
)

var logger = log.Logger("handshaked/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖（「这次运行」想怎么跑）
//   配置文件（JSON / TOML）：持久化配置
//
// 优先级：命令行 > 环境变量（HANDSHAKES_*）> 配置文件 > 默认值
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile = flag.String("config", "", "配置文件路径（.toml 或 .json）")
	preset     = flag.String("preset", "", "预设配置 (desktop/server/minimal)")
	host       = flag.String("host", "", "监听地址（IPv4）")
	port       = flag.Int("port", 0, "监听端口（0 = 随机端口）")

	logLevel = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	logFile  = flag.String("log-file", "", "日志文件路径")

	metricsAddr = flag.String("metrics", "", "指标 HTTP 监听地址，设置后启用指标")

	statsInterval = flag.Duration("stats-interval", time.Minute, "状态日志间隔（0 = 关闭）")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	closeLog, err := setupLogging(cfg.Diagnostics)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := []handshakes.Option{handshakes.WithConfig(cfg)}

	var metricsSrv *http.Server
	if cfg.Diagnostics.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, handshakes.WithMetrics(reg))
		metricsSrv = serveMetrics(cfg.Diagnostics.MetricsAddr, reg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	node, err := handshakes.Start(ctx, opts...)
	cancel()
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	if addr, ok := node.ListenAddr(); ok {
		fmt.Printf("正在监听 %s，按 Ctrl+C 退出\n", addr)
	} else {
		fmt.Println("节点已启动（未监听），按 Ctrl+C 退出")
	}

	waitForSignal(node, *statsInterval)
	fmt.Println("\n正在关闭节点...")

	if metricsSrv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = metricsSrv.Shutdown(sctx)
	}
	return nil
}

// serveMetrics 在 addr 上暴露 /metrics
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务退出", "addr", addr, "error", err)
		}
	}()
	logger.Info("指标服务已启动", "addr", addr)
	return srv
}

// waitForSignal 等待退出信号，期间按 interval 输出状态
func waitForSignal(node *handshakes.Node, interval time.Duration) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-signals:
			return
		case <-tick:
			s := node.Stats()
			logger.Info("状态",
				"listening", s.Listening,
				"sessions", s.Sessions,
				"accepted", s.Accepted,
				"uploads", s.ActiveUploads,
				"banned", s.BannedAddrs,
				"refreshRuns", s.Refresh.Runs)
		}
	}
}

// setupLogging 按诊断配置初始化默认 logger
func setupLogging(cfg config.DiagnosticsConfig) (func(), error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.LogFile == "" {
		log.Setup(os.Stderr, level, log.Format(cfg.LogFormat))
		return func() {}, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	log.Setup(file, level, log.Format(cfg.LogFormat))
	return func() { _ = file.Close() }, nil
}
