package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "TSLA", c.Pair.Leading)
	assert.Equal(t, "BTC-USD", c.Pair.Target)
	assert.Equal(t, 90, c.Regime.Window)
	assert.Equal(t, 2, c.Regime.MaxLag)
	assert.InDelta(t, 0.10, c.Regime.Threshold, 1e-12)
	assert.InDelta(t, 0.0015, c.Signal.ChangeThreshold, 1e-12)
	assert.Equal(t, 5*time.Minute, c.Signal.BarInterval)
	assert.Equal(t, 120*time.Hour, c.Signal.IntradayLookback)
	assert.Equal(t, 2, c.Signal.FallbackDays)
	assert.Equal(t, "yahoo", c.Provider.Type)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), c.Regime.StartTime())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
pair:
  leading: NVDA
  target: ETH-USD
regime:
  window: 60
`))
	require.NoError(t, err)
	assert.Equal(t, "NVDA", c.Pair.Leading)
	assert.Equal(t, "ETH-USD", c.Pair.Target)
	assert.Equal(t, 60, c.Regime.Window)
	assert.Equal(t, 2, c.Regime.MaxLag)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"same symbols":     "pair:\n  leading: TSLA\n  target: TSLA\n",
		"bad provider":     "provider:\n  type: csv\n",
		"bad threshold":    "regime:\n  threshold: 1.5\n",
		"bad date":         "regime:\n  start_date: 01/01/2024\n",
		"kafka no brokers": "kafka:\n  enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600))

	t.Setenv("LEADING_SYMBOL", "AAPL")
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", c.Pair.Leading)
	assert.Equal(t, 9090, c.Server.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5000, c.Server.Port)
}
