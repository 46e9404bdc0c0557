package config

import (
	"log/slog"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR",
	"SQLITE_DRIVER", "SQLITE_DSN", "SQLITE_PATH",
	"SQLITE_MAX_OPEN_CONNS", "SQLITE_MAX_IDLE_CONNS", "SQLITE_CONN_MAX_LIFETIME", "SQLITE_LOG_SQL",
	"MAX_UPLOAD_BYTES", "UPLOAD_TTL", "UPLOAD_PRUNE_INTERVAL", "REJECT_EMPTY_UPLOADS",
	"CHARTS_CONFIG",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_CLIENT_ID",
}

// clearEnv resets every variable LoadFromEnv reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.SQLiteDriver != "sqlite3" {
		t.Errorf("SQLiteDriver = %q, want sqlite3", got.SQLiteDriver)
	}
	if got.SQLitePath != "file:aqi?mode=memory&cache=shared" {
		t.Errorf("SQLitePath = %q, want in-memory default", got.SQLitePath)
	}
	if got.SQLiteMaxOpenConns != 1 || got.SQLiteMaxIdleConns != 1 {
		t.Errorf("conns = %d/%d, want 1/1", got.SQLiteMaxOpenConns, got.SQLiteMaxIdleConns)
	}
	if got.SQLiteLogSQL {
		t.Error("SQLiteLogSQL = true, want false")
	}
	if got.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", got.MaxUploadBytes, 10<<20)
	}
	if got.UploadTTL != time.Hour {
		t.Errorf("UploadTTL = %v, want 1h", got.UploadTTL)
	}
	if got.UploadPruneEvery != 5*time.Minute {
		t.Errorf("UploadPruneEvery = %v, want 5m", got.UploadPruneEvery)
	}
	if got.RejectEmptyUploads {
		t.Error("RejectEmptyUploads = true, want false")
	}
	if got.MQTTEnabled() {
		t.Error("MQTTEnabled() = true, want false without MQTT_BROKER")
	}
	if got.MQTTPort != 1883 || got.MQTTTopic != "aqi/logs" || got.MQTTClientID != "aqi-estimator" {
		t.Errorf("mqtt = %d %q %q", got.MQTTPort, got.MQTTTopic, got.MQTTClientID)
	}
}

func TestLoadFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "dev with whitespace", appEnv: "  dev  ", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "app env staging", key: "APP_ENV", val: "staging"},
		{name: "app env uppercase", key: "APP_ENV", val: "DEV"},
		{name: "log level", key: "LOG_LEVEL", val: "loud"},
		{name: "max open conns", key: "SQLITE_MAX_OPEN_CONNS", val: "many"},
		{name: "conn lifetime", key: "SQLITE_CONN_MAX_LIFETIME", val: "forever"},
		{name: "log sql", key: "SQLITE_LOG_SQL", val: "sometimes"},
		{name: "max upload not a number", key: "MAX_UPLOAD_BYTES", val: "10MB"},
		{name: "max upload zero", key: "MAX_UPLOAD_BYTES", val: "0"},
		{name: "ttl", key: "UPLOAD_TTL", val: "1 hour"},
		{name: "ttl negative", key: "UPLOAD_TTL", val: "-1h"},
		{name: "prune interval zero", key: "UPLOAD_PRUNE_INTERVAL", val: "0s"},
		{name: "reject empty", key: "REJECT_EMPTY_UPLOADS", val: "maybe"},
		{name: "mqtt port", key: "MQTT_PORT", val: "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.val)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "  127.0.0.1:9090 ")
	t.Setenv("SQLITE_PATH", "/data/aqi.db")
	t.Setenv("SQLITE_LOG_SQL", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("UPLOAD_TTL", "30m")
	t.Setenv("REJECT_EMPTY_UPLOADS", "1")
	t.Setenv("CHARTS_CONFIG", " charts.toml ")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_PORT", "8883")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("HTTPAddr = %q", got.HTTPAddr)
	}
	if got.SQLitePath != "/data/aqi.db" {
		t.Errorf("SQLitePath = %q", got.SQLitePath)
	}
	if !got.SQLiteLogSQL {
		t.Error("SQLiteLogSQL = false, want true")
	}
	if got.MaxUploadBytes != 2048 {
		t.Errorf("MaxUploadBytes = %d, want 2048", got.MaxUploadBytes)
	}
	if got.UploadTTL != 30*time.Minute {
		t.Errorf("UploadTTL = %v, want 30m", got.UploadTTL)
	}
	if !got.RejectEmptyUploads {
		t.Error("RejectEmptyUploads = false, want true")
	}
	if got.ChartsConfig != "charts.toml" {
		t.Errorf("ChartsConfig = %q", got.ChartsConfig)
	}
	if !got.MQTTEnabled() || got.MQTTBroker != "broker.local" || got.MQTTPort != 8883 {
		t.Errorf("mqtt = %q:%d enabled=%v", got.MQTTBroker, got.MQTTPort, got.MQTTEnabled())
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty string", in: ""},
		{name: "garbage", in: "nope"},
		{name: "almost warn", in: "warns"},
		{name: "numeric", in: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err == nil {
				t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", tt.in)
			}
			// For invalid inputs, function returns LevelInfo along with an error.
			if got != slog.LevelInfo {
				t.Errorf("parseLogLevel(%q) = %v, want %v on error", tt.in, got, slog.LevelInfo)
			}
		})
	}
}
