// Package metrics exposes the feed handler's operational counters as
// Prometheus metrics. This is the structured-observability replacement for
// the source's print_stats text dump; the core itself never touches this
// package.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PacketsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedhandler_packets_received_total",
		Help: "MoldUDP64 packets received from ingress.",
	})
	PacketsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedhandler_packets_dropped_total",
		Help: "Packets dropped by a failed read on the ingress UDP socket.",
	})
	InvalidPackets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedhandler_invalid_packets_total",
		Help: "Packets rejected for a truncated MoldUDP64 header or session id mismatch.",
	})
	GapsDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedhandler_gaps_detected_total",
		Help: "Sequence gaps detected by the MoldUDP64 session machine.",
	})
	HeartbeatsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedhandler_heartbeats_received_total",
		Help: "MoldUDP64 heartbeat packets received.",
	})
	BufferFullCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedhandler_buffer_full_total",
		Help: "Events dropped because the SPSC queue was full.",
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feedhandler_queue_depth",
		Help: "Current occupancy of the SPSC event queue.",
	})
	DecodeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedhandler_decode_latency_seconds",
		Help:    "Time spent decoding one ITCH message.",
		Buckets: prometheus.ExponentialBuckets(1e-7, 2, 16),
	})
)

// Register registers all feed handler collectors with the default
// Prometheus registry. Call once during startup.
func Register() {
	prometheus.MustRegister(
		PacketsReceived,
		PacketsDropped,
		InvalidPackets,
		GapsDetected,
		HeartbeatsReceived,
		BufferFullCount,
		QueueDepth,
		DecodeLatency,
	)
}
