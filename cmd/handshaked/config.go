package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dep2p/go-handshakes/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// 环境变量名
const (
	envPrefix       = "HANDSHAKES_"
	envPreset       = envPrefix + "PRESET"
	envListenHost   = envPrefix + "LISTEN_HOST"
	envListenPort   = envPrefix + "LISTEN_PORT"
	envLogLevel     = envPrefix + "LOG_LEVEL"
	envLogFile      = envPrefix + "LOG_FILE"
	envMetricsAddr  = envPrefix + "METRICS_ADDR"
	envBlockedCIDRs = envPrefix + "BLOCKED_CIDRS"
)

// buildConfig 依次应用配置文件、预设、环境变量和命令行参数
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFile(*configFile); err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	presetName := os.Getenv(envPreset)
	if isFlagSet("preset") {
		presetName = *preset
	}
	if presetName != "" {
		if err := config.ApplyPreset(cfg, presetName); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖
//
// 支持的环境变量：
//   - HANDSHAKES_LISTEN_HOST / HANDSHAKES_LISTEN_PORT: 监听地址
//   - HANDSHAKES_LOG_LEVEL / HANDSHAKES_LOG_FILE: 日志
//   - HANDSHAKES_METRICS_ADDR: 指标地址，设置后启用指标
//   - HANDSHAKES_BLOCKED_CIDRS: 追加拒绝网段（逗号分隔）
func applyEnvOverrides(cfg *config.Config, getenv func(string) string) error {
	if v := getenv(envListenHost); v != "" {
		cfg.Transport.ListenHost = v
	}

	if v := getenv(envListenPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envListenPort, err)
		}
		cfg.Transport.ListenPort = p
	}

	if v := getenv(envLogLevel); v != "" {
		cfg.Diagnostics.LogLevel = v
	}
	if v := getenv(envLogFile); v != "" {
		cfg.Diagnostics.LogFile = v
	}

	if v := getenv(envMetricsAddr); v != "" {
		cfg.Diagnostics.EnableMetrics = true
		cfg.Diagnostics.MetricsAddr = v
	}

	if v := getenv(envBlockedCIDRs); v != "" {
		cfg.Security.BlockedCIDRs = append(cfg.Security.BlockedCIDRs, splitAndTrim(v, ",")...)
	}
	return nil
}

// applyFlagOverrides 应用显式设置的命令行参数
func applyFlagOverrides(cfg *config.Config) {
	if isFlagSet("host") {
		cfg.Transport.ListenHost = *host
	}
	if isFlagSet("port") {
		cfg.Transport.ListenPort = *port
	}
	if isFlagSet("log-level") {
		cfg.Diagnostics.LogLevel = *logLevel
	}
	if isFlagSet("log-file") {
		cfg.Diagnostics.LogFile = *logFile
	}
	if isFlagSet("metrics") && *metricsAddr != "" {
		cfg.Diagnostics.EnableMetrics = true
		cfg.Diagnostics.MetricsAddr = *metricsAddr
	}
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
