package simulation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWriteQueue(t *testing.T) {
	t.Run("Drains Ops In Order", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := newWriteQueue()
		go q.run(ctx)

		var calls atomic.Int32
		for i := 0; i < 3; i++ {
			q.enqueue(ctx, writeOp{name: "insert", do: func(context.Context) error {
				calls.Add(1)
				return nil
			}})
		}

		assert.Eventually(t, func() bool {
			return calls.Load() == 3
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		q.wait()
	})

	t.Run("Retries Until Success", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := newWriteQueue()
		go q.run(ctx)

		var attempts atomic.Int32
		q.enqueue(ctx, writeOp{name: "flaky", do: func(context.Context) error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		}})

		assert.Eventually(t, func() bool {
			return attempts.Load() == 3
		}, 5*time.Second, 25*time.Millisecond)

		cancel()
		q.wait()
	})

	t.Run("Gives Up After Max Attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := newWriteQueue()
		go q.run(ctx)

		var attempts atomic.Int32
		var after atomic.Int32
		q.enqueue(ctx, writeOp{name: "broken", do: func(context.Context) error {
			attempts.Add(1)
			return errors.New("permanent")
		}})
		q.enqueue(ctx, writeOp{name: "next", do: func(context.Context) error {
			after.Add(1)
			return nil
		}})

		// the broken op is abandoned and the next one still runs
		assert.Eventually(t, func() bool {
			return attempts.Load() == writeAttempts && after.Load() == 1
		}, 5*time.Second, 25*time.Millisecond)

		cancel()
		q.wait()
	})

	t.Run("Full Queue Drops Instead Of Blocking", func(t *testing.T) {
		q := newWriteQueue()
		// no worker running, so the channel fills up
		for i := 0; i < queueDepth+10; i++ {
			q.enqueue(context.Background(), writeOp{name: "noop", do: func(context.Context) error {
				return nil
			}})
		}
		assert.Len(t, q.ops, queueDepth)
	})
}
