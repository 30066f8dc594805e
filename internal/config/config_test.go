package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes validation.
func validConfig() *Config {
	return &Config{
		MQTTHost:  "broker.local",
		MQTTPort:  1883,
		MQTTTopic: "redalert",
		AlertsURL: DefaultAlertsURL,
		DebugURL:  DefaultDebugURL,
		Region:    AllRegions,
	}
}

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	cfg := validConfig()
	cfg.MQTTHost = ""
	require.ErrorIs(t, Validate(cfg), errBrokerHostRequired)

	cfg = validConfig()
	cfg.MQTTPort = 70000
	require.ErrorIs(t, Validate(cfg), errBrokerPortInvalid)

	cfg = validConfig()
	cfg.MQTTTopic = "/"
	require.ErrorIs(t, Validate(cfg), errTopicRequired)

	cfg = validConfig()
	cfg.MQTTQoS = 3
	require.ErrorIs(t, Validate(cfg), errQoSInvalid)

	cfg = validConfig()
	cfg.Region = " "
	require.ErrorIs(t, Validate(cfg), errRegionRequired)

	cfg = validConfig()
	cfg.DebugMode = true
	cfg.DebugURL = "not a url"
	require.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.MetricsAddress = "no-port"
	require.Error(t, Validate(cfg))

	// Zero durations are replaced by defaults.
	cfg = validConfig()
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	require.Equal(t, DefaultNotifyTimeout, cfg.NotifyTimeout)
	require.Equal(t, DefaultSeenCapacity, cfg.SeenCapacity)
}

// TestHelpers covers the derived values used by the monitor.
func TestHelpers(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Notifiers = "  tgram://a/b \n json://hook.local/x  "

	require.Equal(t, []string{"tgram://a/b", "json://hook.local/x"}, cfg.NotifierURIs())
	require.Equal(t, "tcp://broker.local:1883", cfg.BrokerURL())
	require.Equal(t, DefaultAlertsURL, cfg.FeedURL())

	cfg.DebugMode = true
	require.Equal(t, DefaultDebugURL, cfg.FeedURL())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := validConfig()
	cfg.Region = "תל אביב - מרכז העיר"
	cfg.PollInterval = 2 * time.Second
	cfg.SeenTTL = time.Hour

	require.NoError(t, Save(path, cfg))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.MQTTHost, loaded.MQTTHost)
	require.Equal(t, cfg.Region, loaded.Region)
	require.Equal(t, 2*time.Second, loaded.PollInterval)
	require.Equal(t, time.Hour, loaded.SeenTTL)
}

// TestLoad_Environment verifies environment variables override defaults.
func TestLoad_Environment(t *testing.T) {
	t.Setenv("MQTT_HOST", "10.0.0.5")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("REGION", "חיפה")
	t.Setenv("INCLUDE_TEST_ALERTS", "t")
	t.Setenv("DEBUG_MODE", "1")
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("NOTIFIERS", "tgram://x/y discord://a/b")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", cfg.MQTTHost)
	require.Equal(t, 8883, cfg.MQTTPort)
	require.Equal(t, "חיפה", cfg.Region)
	require.True(t, cfg.IncludeTestAlerts)
	require.True(t, cfg.DebugMode)
	require.Equal(t, 3*time.Second, cfg.PollInterval)
	require.Len(t, cfg.NotifierURIs(), 2)

	// Untouched keys keep their defaults.
	require.Equal(t, "redalert", cfg.MQTTTopic)
	require.Equal(t, "user", cfg.MQTTUser)
	require.Equal(t, time.Hour, cfg.MQTTKeepAlive)
}

// TestLoad_MissingFile reports unreadable files.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestMarshal_Durations renders durations in their readable form.
func TestMarshal_Durations(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.MQTTKeepAlive = time.Hour
	cfg.FetchTimeout = 1500 * time.Millisecond

	data, err := Marshal(cfg)
	require.NoError(t, err)
	require.Contains(t, string(data), "mqtt_keepalive: 1h0m0s")
	require.Contains(t, string(data), "fetch_timeout: 1.5s")
	require.Contains(t, string(data), "mqtt_port: 1883")
}
