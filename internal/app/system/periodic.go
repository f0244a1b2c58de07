package system

import (
	"context"
	"sync"
	"time"
)

// Periodic runs a function on a fixed interval until stopped.
type Periodic struct {
	ServiceName string
	Interval    time.Duration
	Fn          func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Service = (*Periodic)(nil)

// NewPeriodic creates a periodic service.
func NewPeriodic(name string, interval time.Duration, fn func(ctx context.Context)) *Periodic {
	return &Periodic{ServiceName: name, Interval: interval, Fn: fn}
}

func (p *Periodic) Name() string { return p.ServiceName }

// Start launches the loop. The loop outlives ctx only until Stop is called.
func (p *Periodic) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				p.Fn(loopCtx)
			}
		}
	}(p.done)
	return nil
}

// Stop cancels the loop and waits for it to exit or ctx to expire.
func (p *Periodic) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
