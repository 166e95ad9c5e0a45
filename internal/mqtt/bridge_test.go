package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"thermopanel/internal/config"
	"thermopanel/internal/dashboard"
	"thermopanel/internal/display"
	"thermopanel/internal/types"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingForwarder struct {
	mu      sync.Mutex
	actions []string
}

func (f *recordingForwarder) Forward(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func testConfig() config.Config {
	return config.Config{
		MQTTBroker:      "127.0.0.1",
		MQTTPort:        1,
		MQTTClientID:    "thermopanel",
		MQTTTopicPrefix: "home/",
		DeviceID:        "hall",
	}
}

func TestTopics(t *testing.T) {
	state, action := Topics("/home/", "hall")
	if state != "home/hall/state" || action != "home/hall/action" {
		t.Fatalf("Topics() = %q, %q", state, action)
	}
}

func TestClientID_isUnique(t *testing.T) {
	a, b := ClientID("thermopanel"), ClientID("thermopanel")
	if a == b {
		t.Fatalf("ClientID() repeated %q", a)
	}
	if !strings.HasPrefix(a, "thermopanel-") || len(a) != len("thermopanel-")+8 {
		t.Errorf("ClientID() = %q", a)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{name: "json object", payload: `{"action": "increase-target-temp"}`, want: "increase-target-temp"},
		{name: "json string", payload: `"decrease-running-time"`, want: "decrease-running-time"},
		{name: "bare text", payload: "  start\n", want: "start"},
		{name: "empty", payload: "   ", wantErr: true},
		{name: "object without action", payload: `{"cmd": "x"}`, wantErr: true},
		{name: "broken json", payload: `{"action": `, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAction(%q) = %q, want error", tt.payload, got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseAction(%q) = %q, %v; want %q", tt.payload, got, err, tt.want)
			}
		})
	}
}

func TestHandleMessage_forwardsValidActions(t *testing.T) {
	f := &recordingForwarder{}
	b := NewBridge(testConfig(), f, quietLogger)

	b.handleMessage("home/hall/action", []byte(`{"action":"increase-running-time"}`))
	b.handleMessage("home/hall/action", []byte(``))
	b.handleMessage("home/hall/action", []byte(`decrease-target-temp`))

	if len(f.actions) != 2 || f.actions[0] != "increase-running-time" || f.actions[1] != "decrease-target-temp" {
		t.Fatalf("forwarded = %v", f.actions)
	}
}

func TestNewStateMessage(t *testing.T) {
	if _, ok := NewStateMessage("hall", dashboard.View{}); ok {
		t.Fatal("NewStateMessage() ok before first tick")
	}

	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	msg, ok := NewStateMessage("hall", dashboard.View{
		Seq:       5,
		UpdatedAt: at,
		State:     &types.ServerState{Temperature: 20.5, Humidity: 41, RunningTime: 200, TargetTemperature: 21},
		Fields:    map[string]string{display.RunningTimeField: "INDEFINITELY"},
	})
	if !ok {
		t.Fatal("NewStateMessage() not ok")
	}
	want := StateMessage{
		Device: "hall", Seq: 5, Time: at,
		Temperature: 20.5, Humidity: 41, RunningTime: 200, TargetTemperature: 21,
		RunningTimeText: "INDEFINITELY",
	}
	if msg != want {
		t.Fatalf("NewStateMessage() = %+v; want %+v", msg, want)
	}
}

func TestPublishState_notConnected(t *testing.T) {
	b := NewBridge(testConfig(), &recordingForwarder{}, quietLogger)
	v := dashboard.View{Seq: 1, State: &types.ServerState{}}
	if err := b.PublishState(v); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("PublishState() = %v; want ErrNotConnected", err)
	}
	if err := b.PublishState(dashboard.View{}); err != nil {
		t.Fatalf("PublishState(no state) = %v; want nil", err)
	}
}

func TestConnect_respectsContextAndDisconnect(t *testing.T) {
	b := NewBridge(testConfig(), &recordingForwarder{}, quietLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := b.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() = %v; want deadline exceeded", err)
	}

	b.Disconnect()
	b.Disconnect()
	if err := b.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect() after Disconnect = %v; want ErrStopped", err)
	}
	if b.IsConnected() {
		t.Fatal("IsConnected() after Disconnect")
	}
}
