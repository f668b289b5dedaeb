package config

import (
	"errors"
	"time"
)

// ResourceConfig 上传准入配置
type ResourceConfig struct {
	// MaxUploads 同时进行的上传总数上限
	MaxUploads int `json:"max_uploads" toml:"max_uploads"`

	// MaxUploadsPerHost 单地址同时上传数上限
	MaxUploadsPerHost int `json:"max_uploads_per_host" toml:"max_uploads_per_host"`

	// PushAdmissionTimeout 推送请求等待准入判定的上限
	PushAdmissionTimeout Duration `json:"push_admission_timeout" toml:"push_admission_timeout"`
}

// DefaultResourceConfig 返回默认上传准入配置
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		MaxUploads:           8,
		MaxUploadsPerHost:    2,
		PushAdmissionTimeout: Duration(250 * time.Millisecond),
	}
}

// Validate 验证上传准入配置
func (c ResourceConfig) Validate() error {
	if c.MaxUploads <= 0 {
		return errors.New("max_uploads must be positive")
	}
	if c.MaxUploadsPerHost <= 0 || c.MaxUploadsPerHost > c.MaxUploads {
		return errors.New("max_uploads_per_host must be within [1, max_uploads]")
	}
	if c.PushAdmissionTimeout <= 0 {
		return errors.New("push_admission_timeout must be positive")
	}
	return nil
}
