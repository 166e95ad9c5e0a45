// Package dataclient talks JSON over HTTP to the controller server that owns
// the /data and /button-press endpoints.
package dataclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thermopanel/internal/types"
)

const (
	DataPath        = "/data"
	ButtonPressPath = "/button-press"

	maxBodyBytes = 1 << 20
)

type Options struct {
	// HTTPClient defaults to a client without its own timeout; deadlines
	// come from FetchTimeout, ActionTimeout and the caller's context.
	HTTPClient    *http.Client
	FetchTimeout  time.Duration
	ActionTimeout time.Duration
}

type Client struct {
	base          *url.URL
	http          *http.Client
	fetchTimeout  time.Duration
	actionTimeout time.Duration
}

func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:          u,
		http:          hc,
		fetchTimeout:  opts.FetchTimeout,
		actionTimeout: opts.ActionTimeout,
	}, nil
}

// BaseURL returns the collaborator base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// serverStateWire mirrors types.ServerState with pointers so absent and
// null fields can be told apart from zero readings.
type serverStateWire struct {
	Temperature       *float64 `json:"temperature"`
	Humidity          *float64 `json:"humidity"`
	RunningTime       *float64 `json:"running_time"`
	TargetTemperature *float64 `json:"target_temperature"`
}

// FetchState performs GET /data.
func (c *Client) FetchState(ctx context.Context) (types.ServerState, error) {
	const op = "fetch state"
	ctx, cancel := withTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(DataPath), nil)
	if err != nil {
		return types.ServerState{}, transportErr(op, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return types.ServerState{}, transportErr(op, err)
	}

	var wire serverStateWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return types.ServerState{}, malformedErr(op, err)
	}
	missing := missingFields(wire)
	if len(missing) > 0 {
		return types.ServerState{}, malformedErr(op, fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")))
	}
	return types.ServerState{
		Temperature:       *wire.Temperature,
		Humidity:          *wire.Humidity,
		RunningTime:       *wire.RunningTime,
		TargetTemperature: *wire.TargetTemperature,
	}, nil
}

func missingFields(w serverStateWire) []string {
	var out []string
	if w.Temperature == nil {
		out = append(out, "temperature")
	}
	if w.Humidity == nil {
		out = append(out, "humidity")
	}
	if w.RunningTime == nil {
		out = append(out, "running_time")
	}
	if w.TargetTemperature == nil {
		out = append(out, "target_temperature")
	}
	return out
}

// PressButton performs POST /button-press and returns the acknowledgement
// body. Its shape is up to the server; it only has to be JSON.
func (c *Client) PressButton(ctx context.Context, action string) (json.RawMessage, error) {
	const op = "press button"
	ctx, cancel := withTimeout(ctx, c.actionTimeout)
	defer cancel()

	payload, err := json.Marshal(types.ActionRequest{Action: action})
	if err != nil {
		return nil, transportErr(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(ButtonPressPath), bytes.NewReader(payload))
	if err != nil {
		return nil, transportErr(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, transportErr(op, err)
	}
	if !json.Valid(body) {
		return nil, malformedErr(op, errors.New("acknowledgement is not JSON"))
	}
	return json.RawMessage(body), nil
}

func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
