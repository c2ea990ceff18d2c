package telemetry

import (
	"sync"
	"testing"
)

func TestCountersConcurrentIncrements(t *testing.T) {
	c := NewCounters(0)

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				c.Heartbeats.Add(1)
				c.Opportunities.Add(1)
				c.IntentsEmitted.Add(2)
			}
		}()
	}
	wg.Wait()

	ss := c.Snapshot(1000)
	if ss.Heartbeats != workers*perWorker {
		t.Fatalf("lost heartbeat updates: got %d", ss.Heartbeats)
	}
	if ss.Opportunities != workers*perWorker {
		t.Fatalf("lost opportunity updates: got %d", ss.Opportunities)
	}
	if ss.IntentsEmitted != 2*workers*perWorker {
		t.Fatalf("lost intent updates: got %d", ss.IntentsEmitted)
	}
	if ss.UpSec != 1 {
		t.Fatalf("unexpected up_sec: %d", ss.UpSec)
	}
}
