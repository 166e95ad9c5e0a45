package stub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"thermopanel/internal/dataclient"
	"thermopanel/internal/types"
)

// fakeFirmware answers the controller's /api endpoints.
type fakeFirmware struct {
	mu      sync.Mutex
	reading string
	status  int
	posts   []string
}

func (f *fakeFirmware) setReading(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = body
}

func (f *fakeFirmware) posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

func (f *fakeFirmware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == FetchDataPath:
		_, _ = io.WriteString(w, f.reading)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/"):
		f.posts = append(f.posts, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

const firmwareReading = `{"currentTemperature": 20.5, "currentHumidity": 41, "runningTime": 65, "targetTemperature": 22}`

func newUpstream(t *testing.T, fw *fakeFirmware) *Upstream {
	t.Helper()
	ts := httptest.NewServer(fw)
	t.Cleanup(ts.Close)
	up, err := NewUpstream(ts.URL, UpstreamOptions{
		HTTPClient: ts.Client(),
		Interval:   10 * time.Millisecond,
		Timeout:    time.Second,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewUpstream: %v", err)
	}
	return up
}

func TestNewUpstream_rejectsRelativeURL(t *testing.T) {
	if _, err := NewUpstream("/api", UpstreamOptions{}); err == nil {
		t.Fatal("NewUpstream(relative) = nil; want error")
	}
}

func TestUpstream_refreshMapsFirmwareFields(t *testing.T) {
	up := newUpstream(t, &fakeFirmware{reading: firmwareReading})

	if _, ok := up.Reading(); ok {
		t.Fatal("Reading() ok before first refresh")
	}
	if err := up.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}
	got, ok := up.Reading()
	want := types.ServerState{Temperature: 20.5, Humidity: 41, RunningTime: 65, TargetTemperature: 22}
	if !ok || got != want {
		t.Fatalf("Reading() = %+v, %v; want %+v", got, ok, want)
	}
}

func TestUpstream_failedRefreshKeepsLastReading(t *testing.T) {
	fw := &fakeFirmware{reading: firmwareReading}
	up := newUpstream(t, fw)
	if err := up.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}

	for _, body := range []string{`{"currentTemperature": 30}`, `not json`} {
		fw.setReading(body)
		if err := up.Refresh(context.Background()); err == nil {
			t.Errorf("Refresh(%q) = nil; want error", body)
		}
		if got, _ := up.Reading(); got.Temperature != 20.5 {
			t.Errorf("after %q Reading() = %+v; want previous reading", body, got)
		}
	}
}

func TestUpstream_check(t *testing.T) {
	if err := newUpstream(t, &fakeFirmware{reading: `{}`}).Check(context.Background()); err != nil {
		t.Errorf("Check(incomplete reading) = %v; want nil", err)
	}
	if err := newUpstream(t, &fakeFirmware{status: http.StatusServiceUnavailable}).Check(context.Background()); err == nil {
		t.Error("Check(503) = nil; want error")
	}
}

func TestUpstream_pressMapsActions(t *testing.T) {
	fw := &fakeFirmware{reading: firmwareReading}
	up := newUpstream(t, fw)

	tests := []struct {
		action string
		want   string
		path   string
	}{
		{types.ActionIncreaseTargetTemp, StatusSuccess, "/api/increase-target-temperature"},
		{types.ActionDecreaseTargetTemp, StatusSuccess, "/api/decrease-target-temperature"},
		{types.ActionIncreaseRunningTime, StatusSuccess, "/api/increase-running-time"},
		{types.ActionDecreaseRunningTime, StatusSuccess, "/api/decrease-running-time"},
		{"start", StatusIgnored, ""},
	}
	var wantPaths []string
	for _, tt := range tests {
		if got := up.Press(tt.action); got != tt.want {
			t.Errorf("Press(%q) = %q; want %q", tt.action, got, tt.want)
		}
		if tt.path != "" {
			wantPaths = append(wantPaths, tt.path)
		}
	}
	got := fw.posted()
	if strings.Join(got, ",") != strings.Join(wantPaths, ",") {
		t.Errorf("posted = %v; want %v", got, wantPaths)
	}
}

func TestUpstream_pressFailure(t *testing.T) {
	up := newUpstream(t, &fakeFirmware{status: http.StatusInternalServerError})
	if got := up.Press(types.ActionIncreaseTargetTemp); got != StatusFailed {
		t.Errorf("Press() = %q; want %q", got, StatusFailed)
	}
}

func TestUpstream_runRefreshesUntilCancelled(t *testing.T) {
	fw := &fakeFirmware{reading: firmwareReading}
	up := newUpstream(t, fw)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		up.Run(ctx)
		close(done)
	}()

	fw.setReading(`{"currentTemperature": 23, "currentHumidity": 41, "runningTime": 65, "targetTemperature": 22}`)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got, ok := up.Reading(); ok && got.Temperature == 23 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Run never picked up the new reading")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandler_servesUpstream(t *testing.T) {
	fw := &fakeFirmware{reading: firmwareReading}
	up := newUpstream(t, fw)
	mux := http.NewServeMux()
	NewHandler(up, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	// Before the first refresh every field is null, which the dashboard
	// client rejects as malformed.
	resp, err := ts.Client().Get(ts.URL + "/data")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if v, present := body["temperature"]; !present || v != nil {
		t.Errorf("body before refresh = %v; want null fields", body)
	}

	c, err := dataclient.New(ts.URL, dataclient.Options{HTTPClient: ts.Client(), FetchTimeout: time.Second, ActionTimeout: time.Second})
	if err != nil {
		t.Fatalf("dataclient.New: %v", err)
	}
	if _, err := c.FetchState(t.Context()); dataclient.KindOf(err) != dataclient.ErrMalformedResponse {
		t.Errorf("FetchState before refresh = %v; want malformed", err)
	}

	if err := up.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}
	got, err := c.FetchState(t.Context())
	if err != nil || got.RunningTime != 65 {
		t.Fatalf("FetchState() = %+v, %v", got, err)
	}

	if _, err := c.PressButton(t.Context(), types.ActionIncreaseRunningTime); err != nil {
		t.Fatalf("PressButton: %v", err)
	}
	if p := fw.posted(); len(p) != 1 || p[0] != "/api/increase-running-time" {
		t.Errorf("posted = %v", p)
	}

	fw.mu.Lock()
	fw.status = http.StatusInternalServerError
	fw.mu.Unlock()
	if _, err := c.PressButton(t.Context(), types.ActionIncreaseRunningTime); err == nil {
		t.Error("PressButton with failing firmware = nil; want error")
	}
}
