package ingress

import (
	"fmt"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/itch"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/moldudp64"
)

// Snapshot aggregates counters from the session, decoder and queue into one
// point-in-time view, grounded on the source's print_stats dump, for the
// human-readable summary cmd/feedhandler logs on shutdown. The live
// Prometheus collectors in internal/metrics are updated independently, as
// each count changes, by the ingress adapters and the consumer loop.
type Snapshot struct {
	PacketsReceived uint64
	PacketsDropped  uint64
	InvalidPackets  uint64

	SessionStats moldudp64.Stats
	DecoderStats itch.Stats

	QueueDepth    uint64
	QueueCapacity uint64
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"packets received=%d dropped=%d invalid=%d | "+
			"session messages=%d gaps=%d heartbeats=%d | "+
			"decoder total=%d add=%d executed=%d cancelled=%d deleted=%d replaced=%d trades=%d unknown=%d | "+
			"queue depth=%d/%d",
		s.PacketsReceived, s.PacketsDropped, s.InvalidPackets,
		s.SessionStats.MessagesReceived, s.SessionStats.GapsDetected, s.SessionStats.HeartbeatsReceived,
		s.DecoderStats.TotalMessages, s.DecoderStats.AddOrders, s.DecoderStats.OrderExecuted,
		s.DecoderStats.OrderCancelled, s.DecoderStats.OrderDeleted, s.DecoderStats.OrderReplaced,
		s.DecoderStats.Trades, s.DecoderStats.UnknownMessages,
		s.QueueDepth, s.QueueCapacity,
	)
}
