package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FromJSON 从 JSON 数据创建配置，未出现的字段保留默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FromTOML 从 TOML 数据创建配置，未出现的字段保留默认值
func FromTOML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode toml config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载配置
//
// ".toml" 后缀按 TOML 解析，其余按 JSON 解析。加载后执行 Validate。
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, err
	}

	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err = FromTOML(data)
	} else {
		cfg, err = FromJSON(data)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "desktop": 桌面端默认
//   - "server": 服务器，更多上传槽位、更宽松的洪泛阈值
//   - "minimal": 最小资源占用
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "", "desktop":
		return nil
	case "server":
		cfg.Transport.AcceptBacklog = 1024
		cfg.Resource.MaxUploads = 64
		cfg.Resource.MaxUploadsPerHost = 4
		cfg.Security.FloodRate = 10
		cfg.Security.FloodBurst = 50
		cfg.Security.MaxTrackedAddrs = 65536
		return nil
	case "minimal":
		cfg.Transport.AcceptBacklog = 32
		cfg.Resource.MaxUploads = 2
		cfg.Resource.MaxUploadsPerHost = 1
		cfg.Discovery.MinRefreshInterval = Duration(5 * time.Minute)
		cfg.Security.MaxTrackedAddrs = 256
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}
