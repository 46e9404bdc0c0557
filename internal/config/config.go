package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogSQL          bool

	// MaxUploadBytes bounds an uploaded log file and an MQTT log payload.
	MaxUploadBytes     int64
	UploadTTL          time.Duration
	UploadPruneEvery   time.Duration
	RejectEmptyUploads bool

	// ChartsConfig is an optional TOML file with chart presentation options.
	ChartsConfig string

	// MQTT ingestion is disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:       appEnv,
		LogLevel:     level,
		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		SQLiteDriver: envOr("SQLITE_DRIVER", "sqlite3"),
		SQLiteDSN:    strings.TrimSpace(os.Getenv("SQLITE_DSN")),
		// Shared-cache in-memory database: uploads live only as long as the process.
		SQLitePath:   envOr("SQLITE_PATH", "file:aqi?mode=memory&cache=shared"),
		ChartsConfig: strings.TrimSpace(os.Getenv("CHARTS_CONFIG")),
		MQTTBroker:   strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTTopic:    envOr("MQTT_TOPIC", "aqi/logs"),
		MQTTClientID: envOr("MQTT_CLIENT_ID", "aqi-estimator"),
	}

	if cfg.SQLiteMaxOpenConns, err = envInt("SQLITE_MAX_OPEN_CONNS", "1"); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteMaxIdleConns, err = envInt("SQLITE_MAX_IDLE_CONNS", "1"); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteConnMaxLifetime, err = envDuration("SQLITE_CONN_MAX_LIFETIME", "0s"); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteLogSQL, err = envBool("SQLITE_LOG_SQL", "false"); err != nil {
		return Config{}, err
	}

	maxUpload, err := envInt("MAX_UPLOAD_BYTES", "10485760")
	if err != nil {
		return Config{}, err
	}
	if maxUpload <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_UPLOAD_BYTES %d (must be > 0)", maxUpload)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if cfg.UploadTTL, err = envDuration("UPLOAD_TTL", "1h"); err != nil {
		return Config{}, err
	}
	if cfg.UploadTTL <= 0 {
		return Config{}, fmt.Errorf("invalid UPLOAD_TTL %s (must be > 0)", cfg.UploadTTL)
	}
	if cfg.UploadPruneEvery, err = envDuration("UPLOAD_PRUNE_INTERVAL", "5m"); err != nil {
		return Config{}, err
	}
	if cfg.UploadPruneEvery <= 0 {
		return Config{}, fmt.Errorf("invalid UPLOAD_PRUNE_INTERVAL %s (must be > 0)", cfg.UploadPruneEvery)
	}
	if cfg.RejectEmptyUploads, err = envBool("REJECT_EMPTY_UPLOADS", "false"); err != nil {
		return Config{}, err
	}

	if cfg.MQTTPort, err = envInt("MQTT_PORT", "1883"); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort <= 0 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", cfg.MQTTPort)
	}

	return cfg, nil
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envBool(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
