package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"thermopanel/internal/types"
)

// Controller firmware endpoints.
const (
	FetchDataPath = "/api/fetch_data"

	StatusFailed = "failed"
)

var upstreamActionPaths = map[string]string{
	types.ActionIncreaseTargetTemp:  "/api/increase-target-temperature",
	types.ActionDecreaseTargetTemp:  "/api/decrease-target-temperature",
	types.ActionIncreaseRunningTime: "/api/increase-running-time",
	types.ActionDecreaseRunningTime: "/api/decrease-running-time",
}

var errIncompleteReading = errors.New("incomplete reading")

// upstreamReading is the firmware's JSON shape.
type upstreamReading struct {
	CurrentTemperature *float64 `json:"currentTemperature"`
	CurrentHumidity    *float64 `json:"currentHumidity"`
	RunningTime        *float64 `json:"runningTime"`
	TargetTemperature  *float64 `json:"targetTemperature"`
}

type UpstreamOptions struct {
	HTTPClient *http.Client
	// Interval between background refreshes of the cached reading.
	Interval time.Duration
	// Timeout bounds every request to the firmware.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Upstream relays a real controller: readings are refreshed in the
// background and served from cache, button presses are mapped to the
// firmware's per-action endpoints.
type Upstream struct {
	base     *url.URL
	http     *http.Client
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu    sync.RWMutex
	state types.ServerState
	ok    bool
}

func NewUpstream(baseURL string, opts UpstreamOptions) (*Upstream, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", baseURL)
	}
	up := &Upstream{
		base:     u,
		http:     opts.HTTPClient,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
	if up.http == nil {
		up.http = &http.Client{}
	}
	if up.interval <= 0 {
		up.interval = 250 * time.Millisecond
	}
	if up.timeout <= 0 {
		up.timeout = 2 * time.Second
	}
	if up.logger == nil {
		up.logger = slog.Default()
	}
	return up, nil
}

// Check fetches one reading and fails if the firmware does not answer.
func (u *Upstream) Check(ctx context.Context) error {
	if err := u.Refresh(ctx); err != nil && !errors.Is(err, errIncompleteReading) {
		return fmt.Errorf("upstream %s unreachable: %w", u.base, err)
	}
	return nil
}

// Refresh replaces the cached reading. A failed or incomplete fetch keeps
// the previous one.
func (u *Upstream) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.base.JoinPath(FetchDataPath).String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := u.do(req)
	if err != nil {
		return err
	}

	var r upstreamReading
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("decode reading: %w", err)
	}
	if r.CurrentTemperature == nil || r.CurrentHumidity == nil || r.RunningTime == nil || r.TargetTemperature == nil {
		return errIncompleteReading
	}

	u.mu.Lock()
	u.state = types.ServerState{
		Temperature:       *r.CurrentTemperature,
		Humidity:          *r.CurrentHumidity,
		RunningTime:       *r.RunningTime,
		TargetTemperature: *r.TargetTemperature,
	}
	u.ok = true
	u.mu.Unlock()
	return nil
}

// Run refreshes the cache every Interval until ctx is done.
func (u *Upstream) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	for {
		if err := u.Refresh(ctx); err != nil && ctx.Err() == nil {
			u.logger.Warn("failed to fetch data from upstream", "upstream", u.base.String(), "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Reading returns the cached state; ok is false until a complete reading
// has been fetched.
func (u *Upstream) Reading() (types.ServerState, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state, u.ok
}

// Press posts the action to its firmware endpoint.
func (u *Upstream) Press(action string) string {
	path, known := upstreamActionPaths[action]
	if !known {
		return StatusIgnored
	}

	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.base.JoinPath(path).String(), nil)
	if err != nil {
		u.logger.Error("build upstream request", "action", action, "error", err)
		return StatusFailed
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := u.do(req); err != nil {
		u.logger.Error("failed to post action to upstream", "upstream", u.base.String(), "action", action, "error", err)
		return StatusFailed
	}
	return StatusSuccess
}

func (u *Upstream) do(req *http.Request) ([]byte, error) {
	resp, err := u.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
