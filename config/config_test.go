package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试默认配置有效
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, time.Second, cfg.Handshake.WaitTimeout.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.Handshake.PumpLockTimeout.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.Resource.PushAdmissionTimeout.Duration())
}

func TestConfig_ValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"ipv6 host":       func(c *Config) { c.Transport.ListenHost = "::1" },
		"bad host":        func(c *Config) { c.Transport.ListenHost = "example.com" },
		"port range":      func(c *Config) { c.Transport.ListenPort = 70000 },
		"backlog":         func(c *Config) { c.Transport.AcceptBacklog = 0 },
		"wait timeout":    func(c *Config) { c.Handshake.WaitTimeout = 0 },
		"greeting size":   func(c *Config) { c.Handshake.MaxGreetingSize = 10 },
		"guid":            func(c *Config) { c.Handshake.ClientGUID = "xyz" },
		"cidr":            func(c *Config) { c.Security.BlockedCIDRs = []string{"10.0.0.0/99"} },
		"flood rate":      func(c *Config) { c.Security.FloodRate = 0 },
		"per host":        func(c *Config) { c.Resource.MaxUploadsPerHost = 100 },
		"refresh":         func(c *Config) { c.Discovery.MinRefreshInterval = -1 },
		"log level":       func(c *Config) { c.Diagnostics.LogLevel = "loud" },
		"log format":      func(c *Config) { c.Diagnostics.LogFormat = "xml" },
		"metrics address": func(c *Config) { c.Diagnostics.EnableMetrics = true; c.Diagnostics.MetricsAddr = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}

func TestFromJSON_KeepsDefaults(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"transport":{"listen_port":7000},"handshake":{"wait_timeout":"500ms"}}`))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Transport.ListenPort)
	assert.Equal(t, "0.0.0.0", cfg.Transport.ListenHost)
	assert.Equal(t, 500*time.Millisecond, cfg.Handshake.WaitTimeout.Duration())
	assert.Equal(t, 8, cfg.Resource.MaxUploads)

	_, err = FromJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestLoadFile_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handshaked.toml")
	content := `
[transport]
listen_host = "127.0.0.1"
listen_port = 6500

[handshake]
handshake_timeout = "20s"

[security]
blocked_cidrs = ["10.0.0.0/8"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Transport.ListenHost)
	assert.Equal(t, 6500, cfg.Transport.ListenPort)
	assert.Equal(t, 20*time.Second, cfg.Handshake.HandshakeTimeout.Duration())
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Security.BlockedCIDRs)
	assert.True(t, cfg.Transport.AutoListen)
}

func TestLoadFile_JSONValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"resource":{"max_uploads":0}}`), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestApplyPreset(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, ApplyPreset(cfg, "server"))
	assert.Equal(t, 64, cfg.Resource.MaxUploads)
	assert.NoError(t, cfg.Validate())

	cfg = NewConfig()
	require.NoError(t, ApplyPreset(cfg, "minimal"))
	assert.NoError(t, cfg.Validate())

	assert.Error(t, ApplyPreset(cfg, "mobile"))
	assert.Error(t, ApplyPreset(nil, "server"))
}

func TestConfig_Clone(t *testing.T) {
	cfg := NewConfig()
	cfg.Security.BlockedCIDRs = []string{"10.0.0.0/8"}
	c := cfg.Clone()
	c.Security.BlockedCIDRs[0] = "192.168.0.0/16"
	assert.Equal(t, "10.0.0.0/8", cfg.Security.BlockedCIDRs[0])
}
