package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/models"
	"drumtrack-service/internal/ws"
)

func testFanout(t *testing.T) *Fanout {
	t.Helper()
	f := NewFanout("drum-1", ws.NewHub(logging.NewNop()), nil, nil, nil, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	f.Start(ctx, &wg)
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return f
}

func group(confirmTime string) models.ConfirmGroup {
	return models.ConfirmGroup{
		ConfirmTime: confirmTime,
		Additions:   []models.ChemicalAddition{{ID: 1, ProcessID: 7, ConfirmTime: confirmTime}},
	}
}

func TestEventDeliveryDoesNotBlockCaller(t *testing.T) {
	f := testFanout(t)

	// stall the worker mid-task; every event raised meanwhile must still
	// return immediately to the caller
	release := make(chan struct{})
	f.enqueue(func() { <-release })
	defer close(release)

	start := time.Now()
	f.AlertRaised(group("2024-01-01 10:00:00"), models.ActionWindow{DeadlineMs: 1}, 60)
	f.AlertExpired(group("2024-01-01 10:00:00"))
	f.ProcessCompleted("drum-1", 7)
	f.PollFailed("drum-1", assert.AnError)

	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	f := testFanout(t)

	release := make(chan struct{})
	f.enqueue(func() { <-release })
	defer close(release)

	// far more events than the queue holds; overflow is dropped, never waited on
	start := time.Now()
	for i := 0; i < 500; i++ {
		f.ProcessReset("drum-1", 7)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestWorkerDrainsQueuedEvents(t *testing.T) {
	f := testFanout(t)

	f.AlertRaised(group("2024-01-01 10:00:00"), models.ActionWindow{DeadlineMs: 1}, 60)
	f.AlertResolved(group("2024-01-01 10:00:00"), "proof-videos/drum-1/a.mp4")

	// a marker task queued after the events only runs once they have been
	// processed without panicking on the unconfigured channels
	done := make(chan struct{})
	f.enqueue(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "delivery worker never drained the queue")
	}
}
