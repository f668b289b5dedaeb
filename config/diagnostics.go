package config

import (
	"fmt"

	"github.com/dep2p/go-handshakes/pkg/lib/log"
)

// DiagnosticsConfig 日志与指标配置
type DiagnosticsConfig struct {
	// EnableMetrics 是否暴露 Prometheus 指标
	EnableMetrics bool `json:"enable_metrics" toml:"enable_metrics"`

	// MetricsAddr 指标 HTTP 监听地址
	MetricsAddr string `json:"metrics_addr" toml:"metrics_addr"`

	// LogLevel 日志级别（debug/info/warn/error）
	LogLevel string `json:"log_level" toml:"log_level"`

	// LogFormat 日志格式（text/json）
	LogFormat string `json:"log_format" toml:"log_format"`

	// LogFile 日志文件路径，为空时输出到 stderr
	LogFile string `json:"log_file,omitempty" toml:"log_file"`
}

// DefaultDiagnosticsConfig 返回默认诊断配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		EnableMetrics: false,
		MetricsAddr:   "127.0.0.1:9464",
		LogLevel:      "info",
		LogFormat:     string(log.FormatText),
	}
}

// Validate 验证诊断配置
func (c DiagnosticsConfig) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch log.Format(c.LogFormat) {
	case log.FormatText, log.FormatJSON, "":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.EnableMetrics && c.MetricsAddr == "" {
		return fmt.Errorf("metrics_addr is required when metrics are enabled")
	}
	return nil
}
