package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"UPSTREAM_URL", "UPSTREAM_TOKEN", "OUTLET_ID", "FETCH_TIMEOUT", "POLL_INTERVAL",
	"HOLD_WINDOW", "STALE_THRESHOLD", "START_SKEW_LIMIT", "LABELS_FILE", "HTTP_ADDR",
	"EVENT_QUEUE_SIZE", "HEARTBEAT_INTERVAL", "MQTT_BROKER", "MQTT_CLIENT_ID",
	"MQTT_USERNAME", "MQTT_PASSWORD", "MQTT_OUTBOX_SIZE", "CLICKHOUSE_ADDR",
	"CLICKHOUSE_DB", "CLICKHOUSE_USER", "CLICKHOUSE_PASS",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load(noEnvFile(t))

	if cfg.HoldWindow != 3*time.Second {
		t.Errorf("HoldWindow = %v", cfg.HoldWindow)
	}
	if cfg.StaleThreshold != 2*time.Minute {
		t.Errorf("StaleThreshold = %v", cfg.StaleThreshold)
	}
	if cfg.StartSkewLimit != 5*time.Minute {
		t.Errorf("StartSkewLimit = %v", cfg.StartSkewLimit)
	}
	if cfg.FetchTimeout != 5*time.Second || cfg.PollInterval != 30*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.FetchTimeout, cfg.PollInterval)
	}
	if cfg.Heartbeat != 15*time.Minute || cfg.EventQueueSize != 256 {
		t.Errorf("events = %v / %d", cfg.Heartbeat, cfg.EventQueueSize)
	}
	if cfg.HTTPAddr != ":8080" || cfg.MQTTClientID != "laundry-monitor" {
		t.Errorf("addr/client = %q / %q", cfg.HTTPAddr, cfg.MQTTClientID)
	}
	if cfg.MQTTBroker != "" || cfg.ClickHouseAddr != "" {
		t.Error("sinks should be disabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPSTREAM_URL", "https://api.example.com")
	t.Setenv("HOLD_WINDOW", "5s")
	t.Setenv("EVENT_QUEUE_SIZE", "16")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg := Load(noEnvFile(t))
	if cfg.UpstreamURL != "https://api.example.com" {
		t.Errorf("UpstreamURL = %q", cfg.UpstreamURL)
	}
	if cfg.HoldWindow != 5*time.Second {
		t.Errorf("HoldWindow = %v", cfg.HoldWindow)
	}
	if cfg.EventQueueSize != 16 {
		t.Errorf("EventQueueSize = %d", cfg.EventQueueSize)
	}
	if cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "often")
	t.Setenv("EVENT_QUEUE_SIZE", "lots")

	cfg := Load(noEnvFile(t))
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.EventQueueSize != 256 {
		t.Errorf("EventQueueSize = %d", cfg.EventQueueSize)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"OUTLET_ID=outlet-9",
		"POLL_INTERVAL=10s",
		"HOLD_WINDOW=1s",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Already-set variables win over the file
	t.Setenv("HOLD_WINDOW", "4s")

	cfg := Load(path)

	if cfg.OutletID != "outlet-9" {
		t.Errorf("OutletID = %q", cfg.OutletID)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.HoldWindow != 4*time.Second {
		t.Errorf("HoldWindow = %v, env should override .env", cfg.HoldWindow)
	}
}

func validConfig() *Config {
	return &Config{
		UpstreamURL:    "https://api.example.com/v1",
		OutletID:       "outlet-1",
		FetchTimeout:   5 * time.Second,
		PollInterval:   30 * time.Second,
		HoldWindow:     3 * time.Second,
		StaleThreshold: 2 * time.Minute,
		StartSkewLimit: 5 * time.Minute,
		HTTPAddr:       ":8080",
		EventQueueSize: 256,
		Heartbeat:      15 * time.Minute,
		MQTTOutboxSize: 128,
		ClickHouseDB:   "laundry",
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no upstream", func(c *Config) { c.UpstreamURL = "" }, "upstream url is required"},
		{"relative upstream", func(c *Config) { c.UpstreamURL = "/api" }, "must be absolute"},
		{"no outlet", func(c *Config) { c.OutletID = "" }, "outlet id"},
		{"no addr", func(c *Config) { c.HTTPAddr = "" }, "http address"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "poll interval"},
		{"zero timeout", func(c *Config) { c.FetchTimeout = 0 }, "fetch timeout"},
		{"zero stale", func(c *Config) { c.StaleThreshold = 0 }, "stale threshold"},
		{"zero queue", func(c *Config) { c.EventQueueSize = 0 }, "event queue size"},
		{"negative hold", func(c *Config) { c.HoldWindow = -time.Second }, "hold window"},
		{"negative skew", func(c *Config) { c.StartSkewLimit = -time.Second }, "start skew limit"},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }, "heartbeat"},
		{"timeout over poll", func(c *Config) { c.FetchTimeout = time.Minute }, "exceeds poll interval"},
		{"mqtt outbox", func(c *Config) { c.MQTTBroker = "tcp://b:1883"; c.MQTTOutboxSize = 0 }, "mqtt outbox"},
		{"clickhouse db", func(c *Config) { c.ClickHouseAddr = "ch:9000"; c.ClickHouseDB = "" }, "clickhouse database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateZeroHeartbeatAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Heartbeat = 0
	cfg.HoldWindow = 0
	if err := Validate(cfg); err != nil {
		t.Errorf("zero heartbeat/hold should be allowed: %v", err)
	}
}
