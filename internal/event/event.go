// Package event defines the normalized, host-endian record that flows from
// the ITCH decoder through the SPSC queue to a downstream consumer.
package event

// Kind tags which ITCH record an Event was normalized from.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAddOrder
	KindOrderExecuted
	KindOrderCancel
	KindOrderDelete
	KindOrderReplace
	KindTrade
)

// Side is the ASCII buy/sell indicator carried on order-flow records.
type Side uint8

const (
	SideBuy  Side = 'B'
	SideSell Side = 'S'
)

// PriceScale is the fixed-point scale of Event.Price: 10^-6 per unit.
// ITCH wire prices are unsigned 32-bit at 10^-4; the decoder multiplies by
// 100 on normalization.
const PriceScale = 1_000_000

// Event is the universal attribute set produced by the decoder for the eight
// order-flow record types (AddOrder, AddOrderMPID, OrderExecuted,
// OrderExecutedWithPrice, OrderCancel, OrderDelete, OrderReplace, Trade).
// It is trivially copyable: the queue stores it by value.
type Event struct {
	Kind             Kind
	Timestamp        uint64 // nanoseconds since midnight
	OrderRef         uint64
	NewOrderRef      uint64 // populated only for OrderReplace
	Stock            [8]byte
	Side             Side
	Price            int64 // signed, scale 10^-6
	Quantity         uint32
	ExecutedQuantity uint32
	StockLocate      uint16
	TrackingNumber   uint16
	SequenceNumber   uint64
}
