package resourcemgr

import (
	"time"

	"github.com/dep2p/go-handshakes/config"
)

// Config 上传准入配置
type Config struct {
	// MaxUploads 上传总数上限
	MaxUploads int

	// MaxUploadsPerHost 单地址上传数上限
	MaxUploadsPerHost int

	// AdmissionTimeout 推送准入判定的默认等待上限
	AdmissionTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建上传准入配置
func ConfigFromUnified(cfg *config.Config) Config {
	rc := config.DefaultResourceConfig()
	if cfg != nil {
		rc = cfg.Resource
	}
	return Config{
		MaxUploads:        rc.MaxUploads,
		MaxUploadsPerHost: rc.MaxUploadsPerHost,
		AdmissionTimeout:  rc.PushAdmissionTimeout.Duration(),
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MaxUploads <= 0 || c.MaxUploadsPerHost <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxUploadsPerHost > c.MaxUploads {
		return ErrInvalidConfig
	}
	if c.AdmissionTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
