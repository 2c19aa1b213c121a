// Package ingress adapts external byte sources (a live UDP socket, a pcap
// capture file, or a raw ITCH file) to the moldudp64.Session and itch.Decoder
// core. None of this is part of the core: it is the peripheral plumbing the
// core borrows buffers from for the duration of a single call.
package ingress

import (
	"fmt"
	"net"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/metrics"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/moldudp64"
)

const (
	soReusePort  = 15
	soBusyPoll   = 46
	recvBufBytes = 134 * 1024 * 1024
	busyPollUs   = 50
)

// UDPReceiver runs a single receive loop against one multicast or unicast
// UDP socket, feeding complete datagrams to a moldudp64.Session.
type UDPReceiver struct {
	socket  *net.UDPConn
	session *moldudp64.Session
	coreID  int
	pin     bool
	buffer  []byte
	running int32

	PacketsReceived uint64
	PacketsDropped  uint64

	lastHeartbeats uint64
}

// NewUDPReceiver binds a UDP socket at addr (host:port, may be a multicast
// group address) and tunes it for low-latency reception.
func NewUDPReceiver(addr string, sess *moldudp64.Session, coreID int, pin bool) (*UDPReceiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("ingress: resolve %q: %w", addr, err)
	}

	socket, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("ingress: listen %q: %w", addr, err)
	}

	r := &UDPReceiver{
		socket:  socket,
		session: sess,
		coreID:  coreID,
		pin:     pin,
		buffer:  make([]byte, 9000), // jumbo-frame headroom
	}

	if err := r.tuneSocket(); err != nil {
		socket.Close()
		return nil, err
	}

	return r, nil
}

func (r *UDPReceiver) tuneSocket() error {
	file, err := r.socket.File()
	if err != nil {
		return fmt.Errorf("ingress: socket fd: %w", err)
	}
	defer file.Close()
	fd := int(file.Fd())

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufBytes); err != nil {
		return fmt.Errorf("ingress: SO_RCVBUF: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, soReusePort, 1); err != nil {
		return fmt.Errorf("ingress: SO_REUSEPORT: %w", err)
	}
	// SO_BUSY_POLL is a latency optimization, not correctness-critical; a
	// kernel without it should not prevent startup.
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, soBusyPoll, busyPollUs)
	return nil
}

// Run drives the receive loop until Stop is called. It locks the calling
// goroutine's OS thread and, if pin is set, pins that thread to coreID.
// Run is meant to be called as the body of the producer goroutine.
func (r *UDPReceiver) Run() {
	atomic.StoreInt32(&r.running, 1)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r.pin {
		if err := pinToCPU(r.coreID); err != nil {
			// Affinity is an optimization; continue unpinned rather than
			// abort ingestion.
			_ = err
		}
	}

	for atomic.LoadInt32(&r.running) == 1 {
		n, err := r.socket.Read(r.buffer)
		if err != nil {
			if atomic.LoadInt32(&r.running) == 0 {
				return
			}
			atomic.AddUint64(&r.PacketsDropped, 1)
			metrics.PacketsDropped.Inc()
			continue
		}
		atomic.AddUint64(&r.PacketsReceived, 1)
		metrics.PacketsReceived.Inc()

		ok := r.session.ProcessPacket(r.buffer[:n])
		if !ok {
			metrics.InvalidPackets.Inc()
		}
		if hb := r.session.Stats.HeartbeatsReceived; hb != r.lastHeartbeats {
			metrics.HeartbeatsReceived.Add(float64(hb - r.lastHeartbeats))
			r.lastHeartbeats = hb
		}
	}
}

// Stop halts the receive loop and closes the socket.
func (r *UDPReceiver) Stop() {
	atomic.StoreInt32(&r.running, 0)
	r.socket.Close()
}

// pinToCPU pins the calling OS thread to coreID via SchedSetaffinity. The
// caller must already hold runtime.LockOSThread.
func pinToCPU(coreID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)
	// pid 0 means "the calling thread" under Linux's sched_setaffinity.
	return unix.SchedSetaffinity(0, &set)
}
