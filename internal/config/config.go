package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// CollaboratorURL is the base URL of the controller server that owns
	// GET /data and POST /button-press.
	CollaboratorURL  string
	PollInterval     time.Duration
	PollTimeout      time.Duration
	PollDiscardStale bool
	ActionTimeout    time.Duration

	HistoryEnabled        bool
	HistorySampleInterval time.Duration
	HistoryRetention      time.Duration

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLLog                bool

	// MQTTBroker empty disables the MQTT bridge.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
	DeviceID        string
}

// MQTTEnabled reports whether a broker was configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
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

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := ParseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	collaboratorURL := envString("COLLABORATOR_URL", "http://localhost:5000")
	u, err := url.Parse(collaboratorURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid COLLABORATOR_URL %q: %w", collaboratorURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Config{}, fmt.Errorf("invalid COLLABORATOR_URL %q (scheme must be http or https)", collaboratorURL)
	}

	pollInterval, err := envPositiveDuration("POLL_INTERVAL", "250ms")
	if err != nil {
		return Config{}, err
	}
	pollTimeout, err := envPositiveDuration("POLL_TIMEOUT", "2s")
	if err != nil {
		return Config{}, err
	}
	pollDiscardStale, err := envBool("POLL_DISCARD_STALE", true)
	if err != nil {
		return Config{}, err
	}
	actionTimeout, err := envPositiveDuration("ACTION_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}

	historyEnabled, err := envBool("HISTORY_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	historySampleInterval, err := envPositiveDuration("HISTORY_SAMPLE_INTERVAL", "1m")
	if err != nil {
		return Config{}, err
	}
	historyRetention, err := envPositiveDuration("HISTORY_RETENTION", "168h")
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := envInt("SQLITE_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("SQLITE_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetimeStr := envString("SQLITE_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SQLITE_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}
	sqlLog, err := envBool("SQL_LOG", false)
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	return Config{
		AppEnv:   appEnv,
		LogLevel: level,
		HTTPAddr: envString("HTTP_ADDR", ":8080"),

		CollaboratorURL:  strings.TrimRight(collaboratorURL, "/"),
		PollInterval:     pollInterval,
		PollTimeout:      pollTimeout,
		PollDiscardStale: pollDiscardStale,
		ActionTimeout:    actionTimeout,

		HistoryEnabled:        historyEnabled,
		HistorySampleInterval: historySampleInterval,
		HistoryRetention:      historyRetention,

		SQLiteDriver:          envString("SQLITE_DRIVER", "sqlite3"),
		SQLiteDSN:             envString("SQLITE_DSN", ""),
		SQLitePath:            envString("SQLITE_PATH", "data/thermopanel.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLLog:                sqlLog,

		MQTTBroker:      envString("MQTT_BROKER", ""),
		MQTTPort:        mqttPort,
		MQTTClientID:    envString("MQTT_CLIENT_ID", "thermopanel"),
		MQTTTopicPrefix: strings.Trim(envString("MQTT_TOPIC_PREFIX", "thermopanel"), "/"),
		DeviceID:        envString("DEVICE_ID", "thermostat"),
	}, nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envString(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	s := envString(key, strconv.FormatBool(def))
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func envPositiveDuration(key, def string) (time.Duration, error) {
	s := envString(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func ParseLogLevel(s string) (slog.Level, error) {
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
