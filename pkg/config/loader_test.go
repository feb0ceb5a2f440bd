package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_ExpandEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
port: ${TEST_CHAT_PORT}
storage: memory
jwt:
  secret: ${TEST_CHAT_SECRET}
chat:
  page_size: 20
  ping_interval: 15s
  symmetric_fanout: true
events:
  driver: kafka
  brokers:
    - broker-1:9092
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_test.yaml"), []byte(yaml), 0o644))
	t.Setenv("TEST_CHAT_PORT", "9999")
	t.Setenv("TEST_CHAT_SECRET", "s3cret")

	cfg, err := ReadConfig[Chat]("chat_test", dir)
	require.NoError(t, err)
	cfg.Defaults()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 20, cfg.Room.PageSize)
	assert.Equal(t, 100, cfg.Room.MaxPageSize)
	assert.Equal(t, 15*time.Second, cfg.Room.PingInterval)
	assert.True(t, cfg.Room.SymmetricFanout)
	assert.Equal(t, EventKafka, cfg.Events.Driver)
	assert.Equal(t, []string{"broker-1:9092"}, cfg.Events.Brokers)
	assert.Equal(t, "chat-events", cfg.Events.Topic)
}

func TestReadConfig_Missing(t *testing.T) {
	_, err := ReadConfig[Chat]("does_not_exist", t.TempDir())
	assert.Error(t, err)
}

func TestGetRedisSetting(t *testing.T) {
	t.Setenv("REDIS_SENTINEL1_IP", "10.0.0.1")
	t.Setenv("REDIS_SENTINEL1_PORT", "26379")
	t.Setenv("REDIS_MASTER_NAME", "")

	master, addrs := GetRedisSetting()
	assert.Equal(t, "mymaster", master)
	assert.Contains(t, addrs, "10.0.0.1:26379")
}
