package bookdemo

import (
	"runtime"
	"sync/atomic"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/metrics"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/queue"
)

// Run drains q in a busy loop with a Gosched backoff on empty, applying
// every popped event to m, until running reports false. It samples q's
// occupancy into the queue_depth gauge once per iteration, matching the
// source's dumping of queue occupancy on its own consumer thread rather
// than from an external timer. On exit it drains whatever remains in q
// before returning, matching the source's consumer thread shutdown
// behavior.
func (m *Market) Run(q *queue.Queue, running *atomic.Bool) {
	for running.Load() {
		metrics.QueueDepth.Set(float64(q.Len()))
		item, ok := q.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}
		m.ApplyEvent(item)
	}
	for {
		item, ok := q.TryPop()
		if !ok {
			return
		}
		m.ApplyEvent(item)
	}
}
