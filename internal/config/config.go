package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the monitor process.
type Config struct {
	// MQTTHost is the broker host name or address.
	MQTTHost string `mapstructure:"mqtt_host" yaml:"mqtt_host"`
	// MQTTPort is the broker TCP port.
	MQTTPort int `mapstructure:"mqtt_port" yaml:"mqtt_port"`
	// MQTTUser and MQTTPassword are the broker credentials.
	MQTTUser     string `mapstructure:"mqtt_user" yaml:"mqtt_user"`
	MQTTPassword string `mapstructure:"mqtt_pass" yaml:"mqtt_pass"`
	// MQTTClientID identifies the session on the broker.
	MQTTClientID string `mapstructure:"mqtt_client_id" yaml:"mqtt_client_id"`
	// MQTTTopic is the namespace prefix of the data, alerts and status topics.
	MQTTTopic string `mapstructure:"mqtt_topic" yaml:"mqtt_topic"`
	// MQTTKeepAlive is the keepalive negotiated with the broker.
	MQTTKeepAlive time.Duration `mapstructure:"mqtt_keepalive" yaml:"mqtt_keepalive"`
	// MQTTQoS is the QoS level of every publish.
	MQTTQoS int `mapstructure:"mqtt_qos" yaml:"mqtt_qos"`
	// MQTTRetain marks every publish as retained.
	MQTTRetain bool `mapstructure:"mqtt_retain" yaml:"mqtt_retain"`
	// MQTTReconnectMax caps the backoff between failed reconnect attempts.
	MQTTReconnectMax time.Duration `mapstructure:"mqtt_reconnect_max" yaml:"mqtt_reconnect_max"`
	// MQTTLogLevel limits what the MQTT client library itself may log.
	MQTTLogLevel string `mapstructure:"mqtt_log_level" yaml:"mqtt_log_level"`

	// AlertsURL is the production alert feed.
	AlertsURL string `mapstructure:"alerts_url" yaml:"alerts_url"`
	// DebugMode switches the feed to DebugURL and re-dispatches known alerts.
	DebugMode bool   `mapstructure:"debug_mode" yaml:"debug_mode"`
	DebugURL  string `mapstructure:"debug_url" yaml:"debug_url"`
	// Region limits dispatch to alerts naming it; "*" accepts every region.
	Region string `mapstructure:"region" yaml:"region"`
	// Notifiers is a whitespace separated list of notification sink URIs.
	Notifiers string `mapstructure:"notifiers" yaml:"notifiers"`
	// IncludeTestAlerts keeps drill alerts instead of suppressing them.
	IncludeTestAlerts bool `mapstructure:"include_test_alerts" yaml:"include_test_alerts"`

	// PollInterval is the fixed cadence of the fetch cycle.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// FetchTimeout bounds one round-trip to the feed.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	// NotifyTimeout bounds delivery to a single notification sink.
	NotifyTimeout time.Duration `mapstructure:"notify_timeout" yaml:"notify_timeout"`

	// SeenCapacity bounds the number of remembered alert ids.
	SeenCapacity int `mapstructure:"seen_capacity" yaml:"seen_capacity"`
	// SeenTTL forgets alert ids older than this; zero keeps them until evicted.
	SeenTTL time.Duration `mapstructure:"seen_ttl" yaml:"seen_ttl"`
	// RedisURL switches the seen set to Redis when set.
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
	// StateFile persists the alarm state and seen ids across restarts.
	StateFile string `mapstructure:"state_file" yaml:"state_file"`

	// StatusAddress is the listen address of the gRPC status service.
	StatusAddress string `mapstructure:"status_addr" yaml:"status_addr"`
	// MetricsAddress is the listen address of the HTTP ops endpoint.
	MetricsAddress string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	// LogLevel is the level of the process logger.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

const (
	// DefaultAlertsURL is the Home Front Command live alerts feed.
	DefaultAlertsURL = "https://www.oref.org.il/WarningMessages/alert/alerts.json"

	// DefaultDebugURL is the feed used when debug mode is on.
	DefaultDebugURL = "http://localhost/alerts.json"

	// AllRegions disables the region filter.
	AllRegions = "*"

	// DefaultPollInterval is the fixed cycle cadence.
	DefaultPollInterval = time.Second

	// DefaultFetchTimeout bounds one feed request.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultNotifyTimeout bounds one sink delivery.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultSeenCapacity is the number of alert ids remembered in memory.
	DefaultSeenCapacity = 4096

	// DefaultFilePermissions is the permission of files written by the monitor.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBrokerHostRequired is returned when the broker host is missing.
	errBrokerHostRequired = errors.New("mqtt host must be provided")
	// errBrokerPortInvalid is returned for ports outside 1..65535.
	errBrokerPortInvalid = errors.New("mqtt port must be between 1 and 65535")
	// errTopicRequired is returned when the topic namespace is empty.
	errTopicRequired = errors.New("mqtt topic namespace must be provided")
	// errQoSInvalid is returned for QoS levels other than 0, 1 and 2.
	errQoSInvalid = errors.New("mqtt qos must be 0, 1 or 2")
	// errRegionRequired is returned when the region filter is empty.
	errRegionRequired = errors.New("region must be provided, use * for all regions")
)

// defaults maps every configuration key to its default value.
// Registering each key is also what makes viper bind it to the environment.
//
//nolint:gochecknoglobals // Read-only table.
var defaults = map[string]any{
	"mqtt_host":           "127.0.0.1",
	"mqtt_port":           1883,
	"mqtt_user":           "user",
	"mqtt_pass":           "password",
	"mqtt_client_id":      "redalert",
	"mqtt_topic":          "redalert",
	"mqtt_keepalive":      time.Hour,
	"mqtt_qos":            0,
	"mqtt_retain":         false,
	"mqtt_reconnect_max":  30 * time.Second,
	"mqtt_log_level":      "warn",
	"alerts_url":          DefaultAlertsURL,
	"debug_mode":          false,
	"debug_url":           DefaultDebugURL,
	"region":              AllRegions,
	"notifiers":           "",
	"include_test_alerts": false,
	"poll_interval":       DefaultPollInterval,
	"fetch_timeout":       DefaultFetchTimeout,
	"notify_timeout":      DefaultNotifyTimeout,
	"seen_capacity":       DefaultSeenCapacity,
	"seen_ttl":            time.Duration(0),
	"redis_url":           "",
	"state_file":          "",
	"status_addr":         "",
	"metrics_addr":        "",
	"log_level":           "info",
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errConfigIsNotSet
	}

	var document yaml.Node
	if err := document.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	humanizeDurations(&document)

	data, err := yaml.Marshal(&document)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	return data, nil
}

// humanizeDurations rewrites duration values from nanoseconds to "1h0m0s"
// form, which Load reads back unchanged.
func humanizeDurations(document *yaml.Node) {
	durations := make(map[string]bool)

	t := reflect.TypeOf(Config{})
	for i := range t.NumField() {
		field := t.Field(i)
		if field.Type == reflect.TypeOf(time.Duration(0)) {
			durations[strings.Split(field.Tag.Get("yaml"), ",")[0]] = true
		}
	}

	if document.Kind == yaml.DocumentNode && len(document.Content) > 0 {
		document = document.Content[0]
	}

	for i := 0; i+1 < len(document.Content); i += 2 {
		key, value := document.Content[i], document.Content[i+1]
		if !durations[key.Value] {
			continue
		}

		if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
			value.Value = time.Duration(n).String()
			value.Tag = "!!str"
		}
	}
}

// Validate checks required fields and fills defaults for zero durations.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.MQTTHost) == "" {
		return errBrokerHostRequired
	}

	if cfg.MQTTPort <= 0 || cfg.MQTTPort > 65535 {
		return errBrokerPortInvalid
	}

	if strings.Trim(cfg.MQTTTopic, "/ ") == "" {
		return errTopicRequired
	}

	if cfg.MQTTQoS < 0 || cfg.MQTTQoS > 2 {
		return errQoSInvalid
	}

	if strings.TrimSpace(cfg.Region) == "" {
		return errRegionRequired
	}

	if _, err := url.ParseRequestURI(cfg.FeedURL()); err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}

	if err := validateListenAddress(cfg.StatusAddress); err != nil {
		return fmt.Errorf("invalid status address: %w", err)
	}

	if err := validateListenAddress(cfg.MetricsAddress); err != nil {
		return fmt.Errorf("invalid metrics address: %w", err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}

	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}

	if cfg.SeenCapacity <= 0 {
		cfg.SeenCapacity = DefaultSeenCapacity
	}

	return nil
}

// FeedURL returns the feed polled by the monitor, honouring debug mode.
func (c *Config) FeedURL() string {
	if c.DebugMode {
		return c.DebugURL
	}

	return c.AlertsURL
}

// NotifierURIs splits Notifiers on whitespace.
func (c *Config) NotifierURIs() []string {
	return strings.Fields(c.Notifiers)
}

// BrokerURL formats host and port as tcp://host:port for the MQTT client.
func (c *Config) BrokerURL() string {
	u := &url.URL{
		Scheme: "tcp",
		Host:   net.JoinHostPort(c.MQTTHost, fmt.Sprint(c.MQTTPort)),
	}

	return u.String()
}

// validateListenAddress accepts an empty value (endpoint disabled) or host:port.
func validateListenAddress(address string) error {
	if address == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return err
	}

	return nil
}
