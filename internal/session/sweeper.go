package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically closes sessions whose expiry has passed. The core
// mandates no idle expiry of its own; this is the external sweep the expiry
// timestamp exists for.
type Sweeper struct {
	tracker  *Tracker
	store    Store
	interval time.Duration
	batch    int
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval sets the time between sweeps.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// WithBatchSize sets the maximum number of sessions closed per sweep.
func WithBatchSize(n int) SweeperOption {
	return func(s *Sweeper) { s.batch = n }
}

// WithSweeperLogger sets the sweeper's logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

// NewSweeper constructs a Sweeper over the given tracker and store.
func NewSweeper(tracker *Tracker, store Store, opts ...SweeperOption) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		tracker:  tracker,
		store:    store,
		interval: time.Minute,
		batch:    500,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start begins the sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	tokens, err := s.store.ExpiredTokens(s.ctx, time.Now(), s.batch)
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return
	}
	closed := 0
	for _, token := range tokens {
		ok, err := s.tracker.Close(s.ctx, token)
		if err != nil {
			s.logger.Error("failed to close expired session", "error", err)
			continue
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		s.logger.Info("closed expired sessions", "count", closed)
	}
}
