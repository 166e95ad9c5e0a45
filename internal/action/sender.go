// Package action forwards button presses to the controller server.
package action

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type Presser interface {
	PressButton(ctx context.Context, action string) (json.RawMessage, error)
}

// Sender forwards actions without reporting back to the caller: outcomes
// only reach the log.
type Sender struct {
	presser Presser
	logger  *slog.Logger

	// ctx bounds every send; cancelling it aborts in-flight requests.
	ctx context.Context
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewSender(ctx context.Context, presser Presser, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{presser: presser, logger: logger, ctx: ctx}
}

// Forward sends the action in the background and returns immediately.
// After Close the action is dropped.
func (s *Sender) Forward(action string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("dropping button action after shutdown", "action", action)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.Send(s.ctx, action)
	}()
}

// Send performs the request on the calling goroutine and logs the outcome.
// It never panics on a failed request and never retries.
func (s *Sender) Send(ctx context.Context, action string) {
	ack, err := s.presser.PressButton(ctx, action)
	if err != nil {
		s.logger.Error("error sending button action", "action", action, "error", err)
		return
	}
	s.logger.Info("button action received by server", "action", action, "ack", string(ack))
}

// Wait blocks until every forwarded action has completed.
func (s *Sender) Wait() {
	s.wg.Wait()
}

// Close stops accepting actions and waits for the forwarded ones.
func (s *Sender) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
