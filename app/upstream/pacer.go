package upstream

import (
	"context"
	"sync"
	"time"
)

// Pacer keeps a minimum gap between the end of one outbound request and the
// start of the next. Only one request holds the turn at a time.
// rate.Limiter spaces token grants rather than request ends, so it cannot hold this gap.
type Pacer struct {
	interval time.Duration
	clock    Clock
	sleep    SleepFunc

	turn chan struct{}

	mu   sync.Mutex
	last time.Time
}

type PacerOption func(*Pacer)

func WithClock(clock Clock) PacerOption {
	return func(p *Pacer) {
		p.clock = clock
	}
}

func WithSleep(sleep SleepFunc) PacerOption {
	return func(p *Pacer) {
		p.sleep = sleep
	}
}

func NewPacer(interval time.Duration, opts ...PacerOption) *Pacer {
	p := &Pacer{
		interval: interval,
		clock:    SystemClock(),
		sleep:    Sleep,
		turn:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AwaitTurn blocks until the caller may start a request. The returned release
// func must be called when the request has finished; it stamps the clock and
// hands the turn to the next caller. Calling it more than once is a no-op.
func (p *Pacer) AwaitTurn(ctx context.Context) (func(), error) {
	select {
	case p.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if wait := p.remaining(); wait > 0 {
		if err := p.sleep(ctx, wait); err != nil {
			<-p.turn
			return nil, err
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			p.last = p.clock.Now()
			p.mu.Unlock()
			<-p.turn
		})
	}

	return release, nil
}

// LastRequest returns the time the most recent request finished.
func (p *Pacer) LastRequest() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Pacer) remaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last.IsZero() {
		return 0
	}
	return p.interval - p.clock.Now().Sub(p.last)
}
