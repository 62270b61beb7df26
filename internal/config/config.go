// Package config loads daemon settings from the environment and an optional
// .env file.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting. Command-line flags override it.
type Config struct {
	// Upstream telemetry
	UpstreamURL   string
	UpstreamToken string
	OutletID      string
	FetchTimeout  time.Duration
	PollInterval  time.Duration

	// Normalization policy
	HoldWindow     time.Duration
	StaleThreshold time.Duration
	StartSkewLimit time.Duration
	LabelsFile     string

	// Read API
	HTTPAddr string

	// Events
	EventQueueSize int
	Heartbeat      time.Duration

	// MQTT, disabled when MQTTBroker is empty
	MQTTBroker     string
	MQTTClientID   string
	MQTTUsername   string
	MQTTPassword   string
	MQTTOutboxSize int

	// ClickHouse audit, disabled when ClickHouseAddr is empty
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string
}

// Load reads the given .env files (".env" if none) without overriding
// variables already set, then builds a Config from the environment.
// A missing .env file is not an error.
func Load(envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		log.Printf("config: %v", err)
	}

	return &Config{
		UpstreamURL:   getEnv("UPSTREAM_URL", ""),
		UpstreamToken: getEnv("UPSTREAM_TOKEN", ""),
		OutletID:      getEnv("OUTLET_ID", ""),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 5*time.Second),
		PollInterval:  getEnvDuration("POLL_INTERVAL", 30*time.Second),

		HoldWindow:     getEnvDuration("HOLD_WINDOW", 3*time.Second),
		StaleThreshold: getEnvDuration("STALE_THRESHOLD", 2*time.Minute),
		StartSkewLimit: getEnvDuration("START_SKEW_LIMIT", 5*time.Minute),
		LabelsFile:     getEnv("LABELS_FILE", ""),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		EventQueueSize: getEnvInt("EVENT_QUEUE_SIZE", 256),
		Heartbeat:      getEnvDuration("HEARTBEAT_INTERVAL", 15*time.Minute),

		MQTTBroker:     getEnv("MQTT_BROKER", ""),
		MQTTClientID:   getEnv("MQTT_CLIENT_ID", "laundry-monitor"),
		MQTTUsername:   getEnv("MQTT_USERNAME", ""),
		MQTTPassword:   getEnv("MQTT_PASSWORD", ""),
		MQTTOutboxSize: getEnvInt("MQTT_OUTBOX_SIZE", 128),

		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "laundry"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("config: failed to parse %s as duration, using default %v: %v", key, defaultValue, err)
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: failed to parse %s as int, using default %d: %v", key, defaultValue, err)
		return defaultValue
	}
	return n
}
