package traffic

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source fetches events newer than a watermark.
type Source interface {
	Since(ctx context.Context, watermark int64) ([]Event, error)
}

// Sink receives every non-empty batch. It also owns the watermark the next
// request is issued with.
type Sink interface {
	Watermark() int64
	Apply(batch []Event, now time.Time)
}

// PollStatus is a snapshot of the poller's connectivity for the status line.
type PollStatus struct {
	Connected   bool
	LastError   string
	LastSuccess time.Time
	OK          int
	Failed      int
	Skipped     int
}

// Poller requests new events on a fixed interval. A failed request leaves
// the sink untouched; the same request is repeated on the next tick.
//
// Only one request is in flight at a time, from reading the watermark to
// applying the batch, so two polls never fetch the same events.
type Poller struct {
	source   Source
	sink     Sink
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	inflight sync.Mutex

	mutex  sync.Mutex
	status PollStatus
}

func NewPoller(source Source, sink Sink, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls immediately and then once per interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.interval)
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one request, waiting for a request already in flight to
// finish first.
func (p *Poller) Poll(ctx context.Context) {
	p.inflight.Lock()
	defer p.inflight.Unlock()
	p.poll(ctx)
}

// TryPoll performs one request unless another is in flight, in which case
// it returns false at once. The running request already covers whatever
// this one would have fetched.
func (p *Poller) TryPoll(ctx context.Context) bool {
	if !p.inflight.TryLock() {
		p.mutex.Lock()
		p.status.Skipped++
		p.mutex.Unlock()
		p.logger.Debug("poll already in flight, skipping")
		return false
	}
	defer p.inflight.Unlock()
	p.poll(ctx)
	return true
}

func (p *Poller) poll(ctx context.Context) {
	watermark := p.sink.Watermark()

	events, err := p.source.Since(ctx, watermark)

	p.mutex.Lock()
	if err != nil {
		if ctx.Err() == nil {
			p.status.Connected = false
			p.status.LastError = err.Error()
			p.status.Failed++
		}
		p.mutex.Unlock()
		if ctx.Err() == nil {
			p.logger.Warn("poll failed", "watermark", watermark, "error", err)
		}
		return
	}
	p.status.Connected = true
	p.status.LastError = ""
	p.status.LastSuccess = p.now()
	p.status.OK++
	p.mutex.Unlock()

	if len(events) == 0 {
		return
	}

	// The sink notifies the UI, which reads Status while drawing, so the
	// status mutex must not be held here.
	p.logger.Debug("poll received events", "count", len(events), "watermark", watermark)
	p.sink.Apply(events, p.now())
}

func (p *Poller) Status() PollStatus {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.status
}
