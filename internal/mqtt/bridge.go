// Package mqtt mirrors the dashboard onto an MQTT broker: applied states
// are published and action commands are forwarded to the controller.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"thermopanel/internal/config"
	"thermopanel/internal/dashboard"
	"thermopanel/internal/display"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt bridge stopped")
	ErrEmptyAction  = errors.New("empty action")
)

const (
	stateQoS       = 0
	actionQoS      = 1
	publishTimeout = 2 * time.Second
)

// Forwarder receives actions that arrive on the action topic.
type Forwarder interface {
	Forward(action string)
}

// StateMessage is the payload published on the state topic.
type StateMessage struct {
	Device            string    `json:"device"`
	Seq               uint64    `json:"seq"`
	Time              time.Time `json:"time"`
	Temperature       float64   `json:"temperature"`
	Humidity          float64   `json:"humidity"`
	RunningTime       float64   `json:"running_time"`
	TargetTemperature float64   `json:"target_temperature"`
	RunningTimeText   string    `json:"running_time_text"`
}

type Bridge struct {
	client    mqtt.Client
	forwarder Forwarder
	logger    *slog.Logger

	stateTopic  string
	actionTopic string
	device      string

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Topics returns the state and action topics for a device.
func Topics(prefix, device string) (state, action string) {
	root := strings.Trim(prefix, "/") + "/" + device
	return root + "/state", root + "/action"
}

// ClientID appends a random suffix so several dashboards can share a broker.
func ClientID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func NewBridge(cfg config.Config, forwarder Forwarder, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		forwarder: forwarder,
		logger:    logger,
		device:    cfg.DeviceID,
		stopCh:    make(chan struct{}),
	}
	b.stateTopic, b.actionTopic = Topics(cfg.MQTTTopicPrefix, cfg.DeviceID)

	clientID := ClientID(cfg.MQTTClientID)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Subscribing in the connect handler restores the subscription after
	// every reconnect of the clean session.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		b.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "client_id", clientID)
		token := c.Subscribe(b.actionTopic, actionQoS, func(_ mqtt.Client, msg mqtt.Message) {
			b.handleMessage(msg.Topic(), msg.Payload())
		})
		go func() {
			if !token.WaitTimeout(5 * time.Second) {
				logger.Error("mqtt subscribe timeout", "topic", b.actionTopic)
				return
			}
			if err := token.Error(); err != nil {
				logger.Error("mqtt subscribe failed", "topic", b.actionTopic, "error", err)
				return
			}
			logger.Info("subscribed to mqtt topic", "topic", b.actionTopic, "qos", actionQoS)
		}()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	b.client = mqtt.NewClient(opts)
	return b
}

// Connect waits for the first connection to the broker. It respects ctx and
// Disconnect; on failure the client keeps retrying in the background.
func (b *Bridge) Connect(ctx context.Context) error {
	select {
	case <-b.stopCh:
		return ErrStopped
	default:
	}
	if b.IsConnected() {
		return nil
	}

	token := b.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.stopCh:
			return ErrStopped
		default:
		}
	}
}

// NewStateMessage converts an applied view; ok is false before the first tick.
func NewStateMessage(device string, v dashboard.View) (StateMessage, bool) {
	if v.State == nil {
		return StateMessage{}, false
	}
	return StateMessage{
		Device:            device,
		Seq:               v.Seq,
		Time:              v.UpdatedAt.UTC(),
		Temperature:       v.State.Temperature,
		Humidity:          v.State.Humidity,
		RunningTime:       v.State.RunningTime,
		TargetTemperature: v.State.TargetTemperature,
		RunningTimeText:   v.Fields[display.RunningTimeField],
	}, true
}

// PublishState publishes v as the retained state of the device.
func (b *Bridge) PublishState(v dashboard.View) error {
	msg, ok := NewStateMessage(b.device, v)
	if !ok {
		return nil
	}
	if !b.IsConnected() {
		return ErrNotConnected
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	token := b.client.Publish(b.stateTopic, stateQoS, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", b.stateTopic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}
	b.logger.Debug("published state", "topic", b.stateTopic, "seq", v.Seq)
	return nil
}

// ParseAction accepts {"action": "..."} or the bare action text.
func ParseAction(payload []byte) (string, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		var req struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
			return "", fmt.Errorf("parse action payload: %w", err)
		}
		trimmed = strings.TrimSpace(req.Action)
	} else if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return "", fmt.Errorf("parse action payload: %w", err)
		}
		trimmed = strings.TrimSpace(s)
	}
	if trimmed == "" {
		return "", ErrEmptyAction
	}
	return trimmed, nil
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	b.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	action, err := ParseAction(payload)
	if err != nil {
		b.logger.Warn("invalid action message", "topic", topic, "error", err, "payload", string(payload))
		return
	}
	b.logger.Info("action received over mqtt", "topic", topic, "action", action)
	b.forwarder.Forward(action)
}

func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	connected := b.connected
	b.mu.RUnlock()
	return connected && b.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns ErrStopped.
func (b *Bridge) Disconnect() {
	b.stopOnce.Do(func() { close(b.stopCh) })

	if b.IsConnected() {
		b.client.Unsubscribe(b.actionTopic).WaitTimeout(2 * time.Second)
	}
	b.client.Disconnect(250)
	b.setConnected(false)
	b.logger.Info("mqtt disconnected")
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}
