package ingress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/metrics"
	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/moldudp64"
)

const (
	pcapGlobalHeaderSize = 24
	pcapRecordHeaderSize = 16
	pcapMagicNative      = 0xA1B2C3D4
	pcapMagicSwapped     = 0xD4C3B2A1

	ethernetHeaderSize = 14
	udpHeaderSize      = 8
	etherTypeIPv4      = 0x0800
	ipProtocolUDP      = 17
)

// ErrInvalidPCAPMagic is returned when a capture file's global header magic
// number matches neither the native nor byte-swapped pcap magic.
var ErrInvalidPCAPMagic = errors.New("ingress: invalid pcap magic number")

// ProcessPCAPFile reads a pcap capture file from r and feeds each UDP
// payload found under an Ethernet/IPv4 frame to sess.ProcessPacket. It
// returns the number of packets successfully unwrapped and accepted by the
// session, which may be fewer than the number of records in the file (a
// non-UDP or non-IPv4 record is skipped, not an error).
func ProcessPCAPFile(r io.Reader, sess *moldudp64.Session) (int, error) {
	var global [pcapGlobalHeaderSize]byte
	if _, err := io.ReadFull(r, global[:]); err != nil {
		return 0, fmt.Errorf("ingress: pcap global header: %w", err)
	}

	magicLE := binary.LittleEndian.Uint32(global[0:4])
	var byteOrder binary.ByteOrder
	switch magicLE {
	case pcapMagicNative:
		byteOrder = binary.LittleEndian
	case pcapMagicSwapped:
		byteOrder = binary.BigEndian
	default:
		return 0, ErrInvalidPCAPMagic
	}

	processed := 0
	var lastHeartbeats uint64
	for {
		var recHeader [pcapRecordHeaderSize]byte
		if _, err := io.ReadFull(r, recHeader[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return processed, fmt.Errorf("ingress: pcap record header: %w", err)
		}
		inclLen := byteOrder.Uint32(recHeader[8:12])

		packet := make([]byte, inclLen)
		if _, err := io.ReadFull(r, packet); err != nil {
			return processed, fmt.Errorf("ingress: pcap record payload: %w", err)
		}

		payload, ok := unwrapEthernetIPv4UDP(packet)
		if !ok {
			continue
		}
		metrics.PacketsReceived.Inc()
		if sess.ProcessPacket(payload) {
			processed++
		} else {
			metrics.InvalidPackets.Inc()
		}
		if hb := sess.Stats.HeartbeatsReceived; hb != lastHeartbeats {
			metrics.HeartbeatsReceived.Add(float64(hb - lastHeartbeats))
			lastHeartbeats = hb
		}
	}
	return processed, nil
}

// unwrapEthernetIPv4UDP strips Ethernet, IPv4 and UDP headers from frame and
// returns the UDP payload (the MoldUDP64 packet). It reports false if frame
// is too short or is not carrying UDP over IPv4.
func unwrapEthernetIPv4UDP(frame []byte) ([]byte, bool) {
	if len(frame) < ethernetHeaderSize {
		return nil, false
	}
	etherType := binary.BigEndian.Uint16(frame[12:14])
	if etherType != etherTypeIPv4 {
		return nil, false
	}

	ip := frame[ethernetHeaderSize:]
	if len(ip) < 20 {
		return nil, false
	}
	ihl := int(ip[0]&0x0F) * 4
	if ihl < 20 || len(ip) < ihl {
		return nil, false
	}
	if ip[9] != ipProtocolUDP {
		return nil, false
	}

	udp := ip[ihl:]
	if len(udp) < udpHeaderSize {
		return nil, false
	}
	udpLen := int(binary.BigEndian.Uint16(udp[4:6]))
	if udpLen < udpHeaderSize || len(udp) < udpLen {
		return nil, false
	}

	return udp[udpHeaderSize:udpLen], true
}
