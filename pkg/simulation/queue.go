package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/homewatts/homewatts/pkg/log"
)

const (
	queueDepth      = 256
	writeAttempts   = 3
	retryBaseDelay  = 250 * time.Millisecond
	perWriteTimeout = 10 * time.Second
)

// writeOp is one storage call queued by the simulation clock.
type writeOp struct {
	name string
	do   func(ctx context.Context) error
}

// writeQueue decouples the tick cadence from storage latency. The clock
// enqueues; a single worker drains with bounded retry. A full queue drops
// the new op (the next tick produces fresh data anyway).
type writeQueue struct {
	ops  chan writeOp
	done chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		ops:  make(chan writeOp, queueDepth),
		done: make(chan struct{}),
	}
}

// enqueue queues an op without blocking. Drops and logs when full.
func (q *writeQueue) enqueue(ctx context.Context, op writeOp) {
	select {
	case q.ops <- op:
	default:
		log.Ctx(ctx).WarnContext(ctx, "write queue full, dropping op", slog.String("op", op.name))
	}
}

// run drains the queue until ctx is canceled. Each op gets writeAttempts
// tries with exponential backoff; a final failure is logged and the op is
// abandoned so the loop never wedges on a bad write.
func (q *writeQueue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-q.ops:
			q.attempt(ctx, op)
		}
	}
}

func (q *writeQueue) attempt(ctx context.Context, op writeOp) {
	delay := retryBaseDelay
	for i := 0; i < writeAttempts; i++ {
		opCtx, cancel := context.WithTimeout(ctx, perWriteTimeout)
		err := op.do(opCtx)
		cancel()
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if i == writeAttempts-1 {
			log.Ctx(ctx).ErrorContext(ctx, "write failed, giving up",
				slog.String("op", op.name),
				slog.Int("attempts", writeAttempts),
				slog.Any("error", err),
			)
			return
		}
		log.Ctx(ctx).DebugContext(ctx, "write failed, retrying",
			slog.String("op", op.name),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// wait blocks until the worker has exited.
func (q *writeQueue) wait() {
	<-q.done
}
