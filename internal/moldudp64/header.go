// Package moldudp64 implements the MoldUDP64 session layer: sequence
// continuity, gap tracking, and per-message fan-out to a decoder.
package moldudp64

import "encoding/binary"

// HeaderSize is the fixed 20-byte MoldUDP64 packet header: 10-byte session
// id, 8-byte big-endian sequence number, 2-byte big-endian message count.
const HeaderSize = 20

// SessionIDSize is the width of the ASCII, right-space-padded session
// identifier.
const SessionIDSize = 10

// HeartbeatSequence is the first_seq value of a MoldUDP64 heartbeat packet.
const HeartbeatSequence = 0

// EndOfSession is the first_seq sentinel terminating a MoldUDP64 feed.
const EndOfSession = ^uint64(0)

// Header is the decoded MoldUDP64 packet header.
type Header struct {
	SessionID [SessionIDSize]byte
	FirstSeq  uint64
	Count     uint16
}

// ParseHeader decodes the fixed 20-byte header from data. It reports false
// if data is shorter than HeaderSize.
func ParseHeader(data []byte) (Header, bool) {
	if len(data) < HeaderSize {
		return Header{}, false
	}
	var h Header
	copy(h.SessionID[:], data[0:10])
	h.FirstSeq = binary.BigEndian.Uint64(data[10:18])
	h.Count = binary.BigEndian.Uint16(data[18:20])
	return h, true
}

// IsHeartbeat reports whether h describes a liveness heartbeat: no messages,
// first_seq zero.
func (h Header) IsHeartbeat() bool {
	return h.FirstSeq == HeartbeatSequence && h.Count == 0
}

// IsEndOfSession reports whether h terminates the feed.
func (h Header) IsEndOfSession() bool {
	return h.FirstSeq == EndOfSession
}

// readBlockLength reads the 2-byte big-endian length prefix of one message
// block. It reports false if fewer than 2 bytes remain.
func readBlockLength(data []byte) (uint16, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(data[0:2]), true
}
