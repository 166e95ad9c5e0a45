package config

import (
	"log/slog"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR",
	"COLLABORATOR_URL", "POLL_INTERVAL", "POLL_TIMEOUT", "POLL_DISCARD_STALE", "ACTION_TIMEOUT",
	"HISTORY_ENABLED", "HISTORY_SAMPLE_INTERVAL", "HISTORY_RETENTION",
	"SQLITE_DRIVER", "SQLITE_DSN", "SQLITE_PATH", "SQLITE_MAX_OPEN_CONNS", "SQLITE_MAX_IDLE_CONNS",
	"SQLITE_CONN_MAX_LIFETIME", "SQL_LOG",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX", "DEVICE_ID",
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
	if got.CollaboratorURL != "http://localhost:5000" {
		t.Errorf("CollaboratorURL = %q, want %q", got.CollaboratorURL, "http://localhost:5000")
	}
	if got.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", got.PollInterval)
	}
	if got.PollTimeout != 2*time.Second {
		t.Errorf("PollTimeout = %v, want 2s", got.PollTimeout)
	}
	if !got.PollDiscardStale {
		t.Error("PollDiscardStale = false, want true")
	}
	if got.ActionTimeout != 5*time.Second {
		t.Errorf("ActionTimeout = %v, want 5s", got.ActionTimeout)
	}
	if !got.HistoryEnabled {
		t.Error("HistoryEnabled = false, want true")
	}
	if got.HistorySampleInterval != time.Minute {
		t.Errorf("HistorySampleInterval = %v, want 1m", got.HistorySampleInterval)
	}
	if got.HistoryRetention != 168*time.Hour {
		t.Errorf("HistoryRetention = %v, want 168h", got.HistoryRetention)
	}
	if got.SQLiteDriver != "sqlite3" {
		t.Errorf("SQLiteDriver = %q, want sqlite3", got.SQLiteDriver)
	}
	if got.SQLitePath != "data/thermopanel.db" {
		t.Errorf("SQLitePath = %q, want data/thermopanel.db", got.SQLitePath)
	}
	if got.SQLiteMaxOpenConns != 1 || got.SQLiteMaxIdleConns != 1 {
		t.Errorf("pool = %d/%d, want 1/1", got.SQLiteMaxOpenConns, got.SQLiteMaxIdleConns)
	}
	if got.MQTTEnabled() {
		t.Error("MQTTEnabled() = true, want false without MQTT_BROKER")
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want 1883", got.MQTTPort)
	}
	if got.MQTTTopicPrefix != "thermopanel" || got.DeviceID != "thermostat" {
		t.Errorf("topic = %q/%q, want thermopanel/thermostat", got.MQTTTopicPrefix, got.DeviceID)
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
	}{
		{name: "staging", appEnv: "staging"},
		{name: "uppercase invalid", appEnv: "DEV"},
		{name: "random", appEnv: "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_CollaboratorURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "trailing slash trimmed", in: "http://192.168.50.1:5000/", want: "http://192.168.50.1:5000"},
		{name: "https allowed", in: " https://panel.local ", want: "https://panel.local"},
		{name: "missing scheme", in: "panel.local:5000", wantErr: true},
		{name: "unsupported scheme", in: "ftp://panel.local", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("COLLABORATOR_URL", tt.in)

			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LoadFromEnv() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.CollaboratorURL != tt.want {
				t.Errorf("CollaboratorURL = %q, want %q", got.CollaboratorURL, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{name: "poll interval valid", key: "POLL_INTERVAL", value: "1s"},
		{name: "poll interval garbage", key: "POLL_INTERVAL", value: "fast", wantErr: true},
		{name: "poll interval zero", key: "POLL_INTERVAL", value: "0s", wantErr: true},
		{name: "poll timeout negative", key: "POLL_TIMEOUT", value: "-1s", wantErr: true},
		{name: "action timeout valid", key: "ACTION_TIMEOUT", value: "750ms"},
		{name: "sample interval zero", key: "HISTORY_SAMPLE_INTERVAL", value: "0", wantErr: true},
		{name: "conn lifetime garbage", key: "SQLITE_CONN_MAX_LIFETIME", value: "forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			if tt.wantErr && err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
		})
	}
}

func TestLoadFromEnv_Bools(t *testing.T) {
	t.Run("discard stale can be disabled", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("POLL_DISCARD_STALE", "false")

		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v, want nil", err)
		}
		if got.PollDiscardStale {
			t.Error("PollDiscardStale = true, want false")
		}
	})

	t.Run("invalid bool returns error", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("HISTORY_ENABLED", "maybe")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatalf("LoadFromEnv() error = nil, want non-nil")
		}
	})
}

func TestLoadFromEnv_MQTT(t *testing.T) {
	t.Run("broker enables bridge", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MQTT_BROKER", "broker.local")
		t.Setenv("MQTT_TOPIC_PREFIX", "/home/panel/")

		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v, want nil", err)
		}
		if !got.MQTTEnabled() {
			t.Error("MQTTEnabled() = false, want true")
		}
		if got.MQTTTopicPrefix != "home/panel" {
			t.Errorf("MQTTTopicPrefix = %q, want home/panel", got.MQTTTopicPrefix)
		}
	})

	for _, port := range []string{"abc", "0", "70000"} {
		t.Run("invalid port "+port, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("MQTT_PORT", port)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
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
			got, err := ParseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		t.Run(in, func(t *testing.T) {
			got, err := ParseLogLevel(in)
			if err == nil {
				t.Fatalf("ParseLogLevel(%q) error = nil, want non-nil", in)
			}
			if got != slog.LevelInfo {
				t.Errorf("ParseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
			}
		})
	}
}
