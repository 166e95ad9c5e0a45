package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"thermopanel/internal/dashboard"
	"thermopanel/internal/modules/history/repository"
	"thermopanel/internal/modules/history/types"
)

// PruneEvery bounds how often old samples are deleted.
const PruneEvery = time.Hour

type Options struct {
	SampleInterval time.Duration
	// Retention of zero keeps samples forever.
	Retention time.Duration
	Logger    *slog.Logger
}

// Recorder persists applied dashboard views, at most one per SampleInterval.
type Recorder struct {
	repo      repository.HistoryRepository
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	mu         sync.Mutex
	lastSample time.Time
	lastPrune  time.Time
}

func NewRecorder(repo repository.HistoryRepository, opts Options) *Recorder {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Recorder{
		repo:      repo,
		interval:  opts.SampleInterval,
		retention: opts.Retention,
		logger:    opts.Logger,
	}
}

// Record stores v if it carries a state and the previous sample is at least
// one interval old. Storage errors are logged and the next view retries.
func (r *Recorder) Record(ctx context.Context, v dashboard.View) {
	if v.State == nil {
		return
	}
	at := v.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastSample.IsZero() && at.Sub(r.lastSample) < r.interval {
		return
	}
	s := types.Sample{
		Seq:               v.Seq,
		Time:              at.UTC(),
		Temperature:       v.State.Temperature,
		Humidity:          v.State.Humidity,
		RunningTime:       v.State.RunningTime,
		TargetTemperature: v.State.TargetTemperature,
	}
	if err := r.repo.InsertSample(ctx, s); err != nil {
		r.logger.Error("failed to record sample", "seq", v.Seq, "error", err)
		return
	}
	r.lastSample = at
	r.logger.Debug("sample recorded", "seq", v.Seq)

	if r.retention > 0 && (r.lastPrune.IsZero() || at.Sub(r.lastPrune) >= PruneEvery) {
		r.prune(ctx, at)
	}
}

func (r *Recorder) prune(ctx context.Context, now time.Time) {
	n, err := r.repo.PruneBefore(ctx, now.Add(-r.retention))
	if err != nil {
		r.logger.Error("failed to prune samples", "error", err)
		return
	}
	r.lastPrune = now
	if n > 0 {
		r.logger.Info("pruned samples", "count", n, "retention", r.retention.String())
	}
}
