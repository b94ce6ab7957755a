package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, int64(11155111), cfg.Chain.ChainID)
	assert.Equal(t, 5*time.Second, cfg.Tracker.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Tracker.WaitTimeout)
	assert.Equal(t, "file", cfg.Tracker.Store)
	assert.Equal(t, "memory", cfg.Tracker.MQType)
	require.Len(t, cfg.Tokens, 2)
	assert.Equal(t, "ETH", cfg.Tokens[0].Address)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRACKER_POLL_INTERVAL", "12s")
	t.Setenv("TRACKER_STORE", "redis")
	t.Setenv("WALLET_PASSWORD", "from-env")
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Wallet.Password)
	assert.Equal(t, "warn", cfg.App.LogLevel)

	assert.Equal(t, 12*time.Second, cfg.Tracker.PollInterval)
	assert.Equal(t, "redis", cfg.Tracker.Store)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  env: production
tracker:
  mq_type: kafka
  poll_lock: true
kafka:
  brokers: ["k1:9092", "k2:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "kafka", cfg.Tracker.MQType)
	assert.True(t, cfg.Tracker.PollLock)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// 未覆盖的字段保留默认值
	assert.Equal(t, "tracker_transactions", cfg.Tracker.Topic)
}

func TestDBConfigStrings(t *testing.T) {
	c := DBConfig{Host: "h", Port: "1", User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "host=h user=u password=p dbname=n port=1 sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", c.URL())
}
