// Command feedhandler is a kernel-bypass NASDAQ TotalView-ITCH 5.0 market
// data feed handler carried over MoldUDP64.
//
// Usage:
//
//	feedhandler -pcap-file data.pcap
//	feedhandler -itch-file data.itch
//	feedhandler -udp-addr 233.54.12.111:26477
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/bookdemo"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/config"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/event"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/ingress"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/itch"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/metrics"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/moldudp64"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/observability"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/queue"
)

func main() {
	observability.InitLogger("feedhandler")

	configPath := flag.String("config", "", "path to a TOML config file; overrides the built-in default")
	pcapFile := flag.String("pcap-file", "", "process a pcap capture file")
	itchFile := flag.String("itch-file", "", "process a raw ITCH binary file (no MoldUDP64 framing)")
	udpAddr := flag.String("udp-addr", "", "live MoldUDP64 multicast/unicast address (host:port)")
	producerCore := flag.Int("producer-core", -1, "CPU core for the ingress/decode thread")
	consumerCore := flag.Int("consumer-core", -1, "CPU core for the book-update thread")
	noPin := flag.Bool("no-pin", false, "disable CPU core pinning")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on; empty disables it")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *pcapFile != "" {
		cfg.Ingress = config.IngressPCAP
		cfg.PCAPFile = *pcapFile
	}
	if *itchFile != "" {
		cfg.Ingress = config.IngressRawFile
		cfg.ITCHFile = *itchFile
	}
	if *udpAddr != "" {
		cfg.Ingress = config.IngressUDP
		cfg.UDPAddr = *udpAddr
	}
	if *producerCore >= 0 {
		cfg.ProducerCore = *producerCore
	}
	if *consumerCore >= 0 {
		cfg.ConsumerCore = *consumerCore
	}
	if *noPin {
		cfg.PinToCore = false
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	metrics.Register()
	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	q := queue.New(cfg.QueueCapacity)
	market := bookdemo.NewMarket()

	dec := itch.NewDecoder(&queueSink{q: q})
	sess := moldudp64.NewSession()
	sess.OnMessage = func(data []byte, length int, seq uint64) {
		start := time.Now()
		dec.Decode(data, seq)
		metrics.DecodeLatency.Observe(time.Since(start).Seconds())
	}
	sess.OnGap = func(g moldudp64.Gap) {
		metrics.GapsDetected.Inc()
		log.Warn().Uint64("start", g.Start).Uint64("end", g.End).Msg("sequence gap detected")
	}
	sess.OnAnomaly = func(g moldudp64.Gap, coveredStart, coveredEnd uint64) {
		log.Warn().
			Uint64("gap_start", g.Start).Uint64("gap_end", g.End).
			Uint64("covered_start", coveredStart).Uint64("covered_end", coveredEnd).
			Msg("retransmission covered an interior subrange of a pending gap; gap left unmodified")
	}

	var running atomic.Bool
	running.Store(true)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if cfg.PinToCore {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			var set unix.CPUSet
			set.Set(cfg.ConsumerCore)
			_ = unix.SchedSetaffinity(0, &set) // affinity is an optimization; run unpinned on failure
		}
		market.Run(q, &running)
	}()

	switch cfg.Ingress {
	case config.IngressPCAP:
		f, err := os.Open(cfg.PCAPFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.PCAPFile).Msg("failed to open pcap file")
		}
		n, err := ingress.ProcessPCAPFile(f, sess)
		f.Close()
		if err != nil {
			log.Error().Err(err).Msg("pcap processing stopped early")
		}
		log.Info().Int("packets", n).Msg("finished processing pcap file")
		running.Store(false)

	case config.IngressRawFile:
		data, err := os.ReadFile(cfg.ITCHFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.ITCHFile).Msg("failed to read itch file")
		}
		n := ingress.ProcessITCHFileChunk(data, dec)
		log.Info().Int("messages", n).Msg("finished processing raw itch file")
		running.Store(false)

	case config.IngressUDP:
		recv, err := ingress.NewUDPReceiver(cfg.UDPAddr, sess, cfg.ProducerCore, cfg.PinToCore)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start udp receiver")
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		go recv.Run()
		log.Info().Str("addr", cfg.UDPAddr).Msg("feed handler running, press ctrl+C to stop")
		<-sigChan
		recv.Stop()
	}

	running.Store(false)
	<-consumerDone

	snap := ingress.Snapshot{
		SessionStats:  sess.Stats,
		DecoderStats:  dec.Stats,
		QueueDepth:    q.Len(),
		QueueCapacity: q.Capacity(),
	}
	log.Info().Str("stats", snap.String()).Msg("feed handler terminated")
}

// queueSink bridges the decoder's normalized events onto the SPSC queue,
// counting a full queue as a dropped event rather than blocking.
type queueSink struct {
	q *queue.Queue
}

func (s *queueSink) OnEvent(ev event.Event) {
	if !s.q.TryPush(ev) {
		metrics.BufferFullCount.Inc()
	}
}
