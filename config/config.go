// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义。
// 支持从 JSON 或 TOML 文件加载，支持预设（desktop/server/minimal）。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Transport.ListenPort = 6346
//
//	cfg, err := config.LoadFile("handshaked.toml")
package config

// Config 是 go-handshakes 的完整配置结构
//
//   - Transport: 监听地址与推送拨号
//   - Handshake: 调度循环与握手超时
//   - Security: 入站安全过滤
//   - Resource: 上传准入
//   - Discovery: 发现服务刷新
//   - Diagnostics: 日志与指标
type Config struct {
	// Transport 监听与拨号配置
	Transport TransportConfig `json:"transport" toml:"transport"`

	// Handshake 握手调度配置
	Handshake HandshakeConfig `json:"handshake" toml:"handshake"`

	// Security 入站安全过滤配置
	Security SecurityConfig `json:"security" toml:"security"`

	// Resource 上传准入配置
	Resource ResourceConfig `json:"resource" toml:"resource"`

	// Discovery 发现服务配置
	Discovery DiscoveryConfig `json:"discovery" toml:"discovery"`

	// Diagnostics 日志与指标配置
	Diagnostics DiagnosticsConfig `json:"diagnostics" toml:"diagnostics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Transport:   DefaultTransportConfig(),
		Handshake:   DefaultHandshakeConfig(),
		Security:    DefaultSecurityConfig(),
		Resource:    DefaultResourceConfig(),
		Discovery:   DefaultDiscoveryConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// Validate 递归验证所有子配置
func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Handshake.Validate(); err != nil {
		return err
	}
	if err := c.Security.Validate(); err != nil {
		return err
	}
	if err := c.Resource.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	return c.Diagnostics.Validate()
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Security.BlockedCIDRs = append([]string(nil), c.Security.BlockedCIDRs...)
	out.Security.AllowedCIDRs = append([]string(nil), c.Security.AllowedCIDRs...)
	return &out
}
