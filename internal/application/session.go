package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rampcore/internal/domain"
)

const defaultQuoteDebounce = 300 * time.Millisecond

// CycleResult is one aggregation cycle's output, tagged with its sequence
// number. Only the newest cycle's result is ever emitted.
type CycleResult struct {
	Seq    uint64
	Result AggregateResult
	Err    error
}

// QuoteSession debounces input changes and runs aggregation cycles. Every
// Submit resets the debounce timer; when it fires, a cycle with a strictly
// increasing sequence number starts. In-flight provider calls of an older
// cycle are allowed to finish but their results are dropped, never merged.
type QuoteSession struct {
	agg      *Aggregator
	debounce time.Duration
	log      *zap.Logger

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer

	results chan CycleResult
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
}

func NewQuoteSession(agg *Aggregator, debounce time.Duration, log *zap.Logger) *QuoteSession {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &QuoteSession{
		agg:      agg,
		debounce: debounce,
		log:      log,
		results:  make(chan CycleResult, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Results delivers at most the latest cycle's outcome; a slow reader only
// ever observes the freshest result.
func (s *QuoteSession) Results() <-chan CycleResult { return s.results }

// Submit registers a new input state. The pending debounce timer, if any,
// is reset; the previous cycle becomes stale the moment the new one starts.
func (s *QuoteSession) Submit(req domain.QuoteRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(req) })
}

func (s *QuoteSession) fire(req domain.QuoteRequest) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	res, err := s.agg.Aggregate(s.ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		s.log.Debug("stale_cycle_dropped", zap.Uint64("seq", seq), zap.Uint64("current", s.seq))
		return
	}
	out := CycleResult{Seq: seq, Result: res, Err: err}
	// Latest wins: replace an unread older result instead of blocking.
	select {
	case s.results <- out:
	default:
		select {
		case <-s.results:
		default:
		}
		s.results <- out
	}
}

// Close cancels the debounce timer and any running cycle.
func (s *QuoteSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
	close(s.results)
}
