// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/harborlight/harborlight/pkg/errutil"
)

// DefaultDeliveryTimeout bounds one unit of background delivery work.
const DefaultDeliveryTimeout = 30 * time.Second

// Dispatcher runs token issuance and mail delivery after the request that
// asked for it has been answered. Requests for known and unknown emails
// therefore return after the same synchronous work.
//
// Work keeps the values of the request context (request id, trace) but not
// its cancellation. Call Wait on shutdown to drain it.
type Dispatcher struct {
	timeout time.Duration
	group   errgroup.Group
}

// NewDispatcher creates a Dispatcher. A non-positive timeout selects
// DefaultDeliveryTimeout.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// Go runs fn in the background. A returned error or panic is logged under
// msg; it never reaches the caller.
func (d *Dispatcher) Go(ctx context.Context, msg string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	d.group.Go(func() (err error) {
		ctx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				err = oops.Code("DISPATCH_PANIC").Errorf("background task panicked: %v", r)
			}
			if err != nil {
				errutil.LogErrorContext(ctx, slog.Default(), msg, err)
			}
		}()
		return fn(ctx)
	})
}

// Wait blocks until all dispatched work has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = d.group.Wait() // tasks log their own failures
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("DISPATCH_DRAIN_TIMEOUT").Wrap(ctx.Err())
	}
}

// DeliveryOption configures how a service delivers one-time credentials.
type DeliveryOption func(*delivery)

type delivery struct {
	dispatcher *Dispatcher
}

// WithDispatcher makes the service deliver through d, so several services
// can be drained together.
func WithDispatcher(d *Dispatcher) DeliveryOption {
	return func(o *delivery) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

func newDelivery(opts []DeliveryOption) delivery {
	o := delivery{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dispatcher == nil {
		o.dispatcher = NewDispatcher(0)
	}
	return o
}
