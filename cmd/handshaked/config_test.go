package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-handshakes/config"
)

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		envListenHost:   "127.0.0.1",
		envListenPort:   "6347",
		envLogLevel:     "debug",
		envMetricsAddr:  "127.0.0.1:9000",
		envBlockedCIDRs: " 10.0.0.0/8 ,, 192.168.0.0/16",
	}
	cfg := config.NewConfig()
	require.NoError(t, applyEnvOverrides(cfg, func(k string) string { return env[k] }))

	assert.Equal(t, "127.0.0.1", cfg.Transport.ListenHost)
	assert.Equal(t, 6347, cfg.Transport.ListenPort)
	assert.Equal(t, "debug", cfg.Diagnostics.LogLevel)
	assert.True(t, cfg.Diagnostics.EnableMetrics)
	assert.Equal(t, "127.0.0.1:9000", cfg.Diagnostics.MetricsAddr)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, cfg.Security.BlockedCIDRs)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides_BadPort(t *testing.T) {
	cfg := config.NewConfig()
	err := applyEnvOverrides(cfg, func(k string) string {
		if k == envListenPort {
			return "abc"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestApplyEnvOverrides_Empty(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, applyEnvOverrides(cfg, func(string) string { return "" }))
	assert.Equal(t, config.NewConfig(), cfg)
}
