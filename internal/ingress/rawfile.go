package ingress

import (
	"encoding/binary"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/itch"
)

// ProcessITCHFileChunk splits data on 2-byte big-endian length prefixes with
// no MoldUDP64 framing — the raw exchange binary format — and hands each
// complete message to dec.Decode. It returns the number of messages
// successfully decoded; a truncated trailing prefix or body stops the scan
// without error.
func ProcessITCHFileChunk(data []byte, dec *itch.Decoder) int {
	offset := 0
	decoded := 0
	for offset+2 <= len(data) {
		msgLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if offset+msgLen > len(data) {
			break
		}
		if dec.Decode(data[offset:offset+msgLen], 0) > 0 {
			decoded++
		}
		offset += msgLen
	}
	return decoded
}
