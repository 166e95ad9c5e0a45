// Package poller drives the periodic refresh of the dashboard.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"thermopanel/internal/dataclient"
	"thermopanel/internal/types"
)

type Fetcher interface {
	FetchState(ctx context.Context) (types.ServerState, error)
}

// Applier receives every state that should become visible.
type Applier interface {
	Apply(seq uint64, state types.ServerState) error
}

// Result is the outcome of one tick.
type Result struct {
	Seq   uint64
	State types.ServerState
	Err   error
	// Stale is set when a response arrived after a newer one had already
	// been applied and was dropped.
	Stale bool
}

// Applied reports whether the tick changed what is displayed.
func (r Result) Applied() bool {
	return r.Err == nil && !r.Stale
}

type Options struct {
	Interval time.Duration
	// DiscardStale drops responses older than the last applied one. When
	// false the last response to complete wins, whatever its age.
	DiscardStale bool
	Logger       *slog.Logger
	// OnResult, if set, observes every tick outcome.
	OnResult func(Result)
}

type Poller struct {
	fetcher Fetcher
	applier Applier
	opts    Options
	logger  *slog.Logger

	seq atomic.Uint64

	mu          sync.Mutex
	lastApplied uint64

	wg sync.WaitGroup
}

func New(fetcher Fetcher, applier Applier, opts Options) *Poller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 250 * time.Millisecond
	}
	return &Poller{
		fetcher: fetcher,
		applier: applier,
		opts:    opts,
		logger:  logger,
	}
}

// Run ticks immediately and then every Interval until ctx is cancelled.
// Ticks are not chained: a slow response does not delay the next tick.
// Run returns ctx.Err() once every in-flight tick has finished.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.logger.Info("poller started", "interval", p.opts.Interval, "discard_stale", p.opts.DiscardStale)
	p.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "last_applied", p.LastApplied())
			return ctx.Err()
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

func (p *Poller) spawn(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Tick(ctx)
	}()
}

// Tick runs a single fetch-and-apply cycle synchronously.
func (p *Poller) Tick(ctx context.Context) Result {
	seq := p.seq.Add(1)
	state, err := p.fetcher.FetchState(ctx)
	res := Result{Seq: seq, State: state, Err: err}
	if err != nil {
		p.logFetchError(ctx, seq, err)
		p.notify(res)
		return res
	}

	p.mu.Lock()
	if p.opts.DiscardStale && seq < p.lastApplied {
		last := p.lastApplied
		p.mu.Unlock()
		res.Stale = true
		p.logger.Debug("discarding stale response", "seq", seq, "last_applied", last)
		p.notify(res)
		return res
	}
	if err := p.applier.Apply(seq, state); err != nil {
		p.mu.Unlock()
		res.Err = err
		p.logger.Error("error applying data", "seq", seq, "error", err)
		p.notify(res)
		return res
	}
	if seq > p.lastApplied {
		p.lastApplied = seq
	}
	p.mu.Unlock()

	p.notify(res)
	return res
}

func (p *Poller) logFetchError(ctx context.Context, seq uint64, err error) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		p.logger.Debug("fetch cancelled", "seq", seq)
		return
	}
	kind := "unknown"
	if k := dataclient.KindOf(err); k != nil {
		kind = k.Error()
	}
	p.logger.Warn("error fetching data", "seq", seq, "kind", kind, "error", err)
}

func (p *Poller) notify(res Result) {
	if p.opts.OnResult != nil {
		p.opts.OnResult(res)
	}
}

// LastApplied returns the sequence number of the newest applied tick.
func (p *Poller) LastApplied() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastApplied
}
