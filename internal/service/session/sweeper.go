package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper evicts expired sessions on a fixed interval until stopped.
type Sweeper struct {
	store    Store
	interval time.Duration
	clock    func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mtx      sync.Mutex
}

func (s *Sweeper) Start(ctx context.Context) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
}

func (s *Sweeper) Stop() {
	s.mtx.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mtx.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Sweep runs a single eviction pass.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) int {
	return s.store.EvictExpired(ctx, now)
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.DebugContext(ctx, "session sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.DebugContext(context.WithoutCancel(ctx), "session sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx, s.clock())
		}
	}
}

func NewSweeper(store Store, interval time.Duration, opts ...Option) *Sweeper {
	options := NewOptions(opts...)

	if interval <= 0 {
		interval = time.Hour
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		clock:    options.Clock,
		logger:   options.Logger,
	}
}
