package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(43114), cfg.Chain.ChainID)
	assert.Equal(t, uint64(300000), cfg.Chain.BuyGasLimit)
	assert.Equal(t, uint64(500000), cfg.Chain.SellGasLimit)
	assert.Equal(t, int64(1), cfg.Chain.SlippagePercent)
	assert.Equal(t, 3, cfg.Feed.MaxReconnectAttempts)
	assert.Equal(t, 100, cfg.Store.MaxTokens)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feed:
  url: wss://example.com/socket
  max_reconnect_attempts: 5
chain:
  rpc_url: https://rpc.example.com
store:
  max_tokens: 42
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/socket", cfg.Feed.URL)
	assert.Equal(t, 5, cfg.Feed.MaxReconnectAttempts)
	assert.Equal(t, "https://rpc.example.com", cfg.Chain.RPCURL)
	assert.Equal(t, 42, cfg.Store.MaxTokens)
	// 未覆盖的字段保持默认值
	assert.Equal(t, int64(43114), cfg.Chain.ChainID)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RUGFI_FEED_URL", "wss://env.example.com/socket")
	t.Setenv("RUGFI_LOG_LEVEL", "debug")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "wss://env.example.com/socket", cfg.Feed.URL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Feed.URL = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.MaxTokens = -1
	require.Error(t, cfg.Validate())
}
