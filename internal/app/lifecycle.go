package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// CancelFuncs holds the cancel functions of a batch lifecycle.
type CancelFuncs struct {
	CancelTimeout context.CancelFunc
	StopSignals   context.CancelFunc
}

// SetupLifecycle returns a context that ends when the batch timeout expires
// or SIGINT/SIGTERM arrives, whichever comes first. A running simulation
// observes it between gates and a running sampler between chunks.
func SetupLifecycle(ctx context.Context, timeout time.Duration) (context.Context, *CancelFuncs) {
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, &CancelFuncs{CancelTimeout: cancelTimeout, StopSignals: stopSignals}
}

// Cleanup releases the signal handler and the timer.
func (c *CancelFuncs) Cleanup() {
	if c.StopSignals != nil {
		c.StopSignals()
	}
	if c.CancelTimeout != nil {
		c.CancelTimeout()
	}
}
