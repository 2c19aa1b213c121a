package itch

import (
	"encoding/binary"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/event"
)

// priceScaleFactor converts an ITCH wire price (unsigned 32-bit, 10^-4
// scale) to the normalized Event price (signed 64-bit, 10^-6 scale).
const priceScaleFactor = 100

// EventSink receives normalized events as the decoder emits them. A single
// method carrying a tagged Event avoids the source's per-message-type
// heap-allocated callback and its dispatch indirection.
type EventSink interface {
	OnEvent(event.Event)
}

// Stats accumulates per-type and aggregate decode counters.
type Stats struct {
	TotalMessages    uint64
	AddOrders        uint64
	OrderExecuted    uint64
	OrderCancelled   uint64
	OrderDeleted     uint64
	OrderReplaced    uint64
	Trades           uint64
	OtherMessages    uint64
	UnknownMessages  uint64
	OtherSideEvents  uint64 // side byte was neither 'B' nor 'S'
}

// Decoder identifies, validates and normalizes single ITCH messages. It
// holds no reference to the buffer across calls: the record pointer passed
// to normalization aliases the input slice only for the duration of Decode.
type Decoder struct {
	Sink  EventSink
	Stats Stats
}

// NewDecoder returns a Decoder that forwards normalized events to sink.
func NewDecoder(sink EventSink) *Decoder {
	return &Decoder{Sink: sink}
}

// Decode identifies the message type from data[0], validates its declared
// length against the protocol table, and — for the eight order-flow record
// types — normalizes it into an event.Event delivered to Sink. seq is the
// MoldUDP64 sequence number the block was carried under (0 when the caller
// has no session framing, e.g. a raw ITCH file); it is copied onto the
// normalized Event unchanged. Decode returns the number of bytes consumed:
// the expected size on success, 0 on any rejection (unknown type, short
// buffer). No partial parse is ever emitted.
func (d *Decoder) Decode(data []byte, seq uint64) int {
	if len(data) < 1 {
		return 0
	}
	msgType := data[0]
	size := MessageSize(msgType)
	if size == 0 {
		d.Stats.UnknownMessages++
		return 0
	}
	if len(data) < size {
		return 0
	}
	d.Stats.TotalMessages++

	if !isOrderFlow(msgType) {
		d.Stats.OtherMessages++
		return size
	}

	stockLocate := binary.BigEndian.Uint16(data[1:3])
	trackingNumber := binary.BigEndian.Uint16(data[3:5])
	timestamp := readBE48(data[5:11])

	base := event.Event{
		StockLocate:    stockLocate,
		TrackingNumber: trackingNumber,
		Timestamp:      timestamp,
		SequenceNumber: seq,
	}

	var ev event.Event
	switch msgType {
	case TypeAddOrder, TypeAddOrderMPID:
		ev = d.parseAddOrder(base, data)
		d.Stats.AddOrders++
	case TypeOrderExecuted, TypeOrderExecutedWithPrice:
		ev = d.parseOrderExecuted(base, data, msgType)
		d.Stats.OrderExecuted++
	case TypeOrderCancel:
		ev = d.parseOrderCancel(base, data)
		d.Stats.OrderCancelled++
	case TypeOrderDelete:
		ev = d.parseOrderDelete(base, data)
		d.Stats.OrderDeleted++
	case TypeOrderReplace:
		ev = d.parseOrderReplace(base, data)
		d.Stats.OrderReplaced++
	case TypeTrade:
		ev = d.parseTrade(base, data)
		d.Stats.Trades++
	}

	if d.Sink != nil {
		d.Sink.OnEvent(ev)
	}
	return size
}

// readBE48 assembles a 6-byte big-endian field into a uint64, matching the
// original source's manual byte-shift assembly for ITCH timestamps.
func readBE48(b []byte) uint64 {
	_ = b[5]
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// side interprets the ASCII buy/sell indicator. Any value other than 'B' or
// 'S' defaults to Buy and is counted separately; the source is permissive
// here and the behavior is preserved rather than rejected.
func (d *Decoder) side(b byte) event.Side {
	switch b {
	case byte(event.SideBuy):
		return event.SideBuy
	case byte(event.SideSell):
		return event.SideSell
	default:
		d.Stats.OtherSideEvents++
		return event.SideBuy
	}
}

func convertPrice(wirePrice uint32) int64 {
	return int64(wirePrice) * priceScaleFactor
}

func (d *Decoder) parseAddOrder(ev event.Event, data []byte) event.Event {
	ev.Kind = event.KindAddOrder
	ev.OrderRef = binary.BigEndian.Uint64(data[11:19])
	ev.Side = d.side(data[19])
	ev.Quantity = binary.BigEndian.Uint32(data[20:24])
	copy(ev.Stock[:], data[24:32])
	ev.Price = convertPrice(binary.BigEndian.Uint32(data[32:36]))
	return ev
}

func (d *Decoder) parseOrderExecuted(ev event.Event, data []byte, msgType byte) event.Event {
	ev.Kind = event.KindOrderExecuted
	ev.OrderRef = binary.BigEndian.Uint64(data[11:19])
	ev.ExecutedQuantity = binary.BigEndian.Uint32(data[19:23])
	// match_number occupies data[23:31] in both variants; unused here.
	if msgType == TypeOrderExecutedWithPrice {
		// printable flag at data[31]; execution price at data[32:36].
		ev.Price = convertPrice(binary.BigEndian.Uint32(data[32:36]))
	}
	return ev
}

func (d *Decoder) parseOrderCancel(ev event.Event, data []byte) event.Event {
	ev.Kind = event.KindOrderCancel
	ev.OrderRef = binary.BigEndian.Uint64(data[11:19])
	ev.ExecutedQuantity = binary.BigEndian.Uint32(data[19:23])
	return ev
}

func (d *Decoder) parseOrderDelete(ev event.Event, data []byte) event.Event {
	ev.Kind = event.KindOrderDelete
	ev.OrderRef = binary.BigEndian.Uint64(data[11:19])
	return ev
}

func (d *Decoder) parseOrderReplace(ev event.Event, data []byte) event.Event {
	ev.Kind = event.KindOrderReplace
	ev.OrderRef = binary.BigEndian.Uint64(data[11:19])
	ev.NewOrderRef = binary.BigEndian.Uint64(data[19:27])
	ev.Quantity = binary.BigEndian.Uint32(data[27:31])
	ev.Price = convertPrice(binary.BigEndian.Uint32(data[31:35]))
	return ev
}

func (d *Decoder) parseTrade(ev event.Event, data []byte) event.Event {
	ev.Kind = event.KindTrade
	ev.OrderRef = binary.BigEndian.Uint64(data[11:19])
	ev.Side = d.side(data[19])
	ev.Quantity = binary.BigEndian.Uint32(data[20:24])
	copy(ev.Stock[:], data[24:32])
	ev.Price = convertPrice(binary.BigEndian.Uint32(data[32:36]))
	// match_number occupies data[36:44]; unused here.
	return ev
}
