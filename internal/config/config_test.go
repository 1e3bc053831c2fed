package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  http_port: 9000
store:
  driver: memory
chat:
  typing_ttl: 3s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 9000, cfg.Server.WSPort)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, time.Second, cfg.Chat.TypingSweepInterval)
	assert.Equal(t, 50, cfg.Chat.HistoryPageSize)
	assert.Equal(t, 100, cfg.Chat.MaxHistoryPageSize)
	assert.Equal(t, 27*time.Second, cfg.WebSocket.PingPeriod)
	assert.Equal(t, NotifyDriverLog, cfg.Notify.Driver)
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, 16, cfg.WebSocket.PushShardNum)
	assert.Equal(t, "buildingchat:", cfg.Redis.KeyPrefix)
}
