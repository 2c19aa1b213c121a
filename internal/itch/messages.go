// Package itch decodes NASDAQ TotalView-ITCH 5.0 messages in place.
//
// Every record is packed and big-endian on the wire. The leading byte is
// always the message type, followed by a 2-byte stock_locate, 2-byte
// tracking_number and a 6-byte big-endian nanosecond timestamp: an 11-byte
// common header shared by all 22 types.
package itch

// Message type bytes, matching the NASDAQ TotalView-ITCH 5.0 spec exactly.
const (
	TypeSystemEvent                = 'S'
	TypeStockDirectory             = 'R'
	TypeStockTradingAction         = 'H'
	TypeRegSHORestriction          = 'Y'
	TypeMarketParticipantPosition  = 'L'
	TypeMWCBDecline                = 'V'
	TypeMWCBStatus                 = 'W'
	TypeIPOQuotingPeriod           = 'K'
	TypeLULDAuctionCollar          = 'J'
	TypeOperationalHalt            = 'h'
	TypeAddOrder                   = 'A'
	TypeAddOrderMPID               = 'F'
	TypeOrderExecuted              = 'E'
	TypeOrderExecutedWithPrice     = 'C'
	TypeOrderCancel                = 'X'
	TypeOrderDelete                = 'D'
	TypeOrderReplace               = 'U'
	TypeTrade                      = 'P'
	TypeCrossTrade                 = 'Q'
	TypeBrokenTrade                = 'B'
	TypeNOII                       = 'I'
	TypeRPII                       = 'N'
)

// commonHeaderSize is the 1-byte type + 2-byte stock_locate + 2-byte
// tracking_number + 6-byte timestamp shared by every record.
const commonHeaderSize = 11

// messageSizes maps each declared message type to its exact wire size in
// bytes, including the common header. An unknown type is absent from the
// map; MessageSize reports 0 for it.
var messageSizes = map[byte]int{
	TypeSystemEvent:               12,
	TypeStockDirectory:            39,
	TypeStockTradingAction:        25,
	TypeRegSHORestriction:         20,
	TypeMarketParticipantPosition: 26,
	TypeMWCBDecline:               35,
	TypeMWCBStatus:                12,
	TypeIPOQuotingPeriod:          28,
	TypeLULDAuctionCollar:         35,
	TypeOperationalHalt:           21,
	TypeAddOrder:                  36,
	TypeAddOrderMPID:              40,
	TypeOrderExecuted:             31,
	TypeOrderExecutedWithPrice:    36,
	TypeOrderCancel:               23,
	TypeOrderDelete:               19,
	TypeOrderReplace:              35,
	TypeTrade:                     44,
	TypeCrossTrade:                40,
	TypeBrokenTrade:               19,
	TypeNOII:                      50,
	TypeRPII:                      20,
}

// MessageSize returns the exact wire size for a message type byte, or 0 if
// the type is not one of the 22 recognized ITCH 5.0 types.
func MessageSize(msgType byte) int {
	return messageSizes[msgType]
}

// isOrderFlow reports whether msgType is one of the eight record types the
// decoder normalizes into an event.Event.
func isOrderFlow(msgType byte) bool {
	switch msgType {
	case TypeAddOrder, TypeAddOrderMPID, TypeOrderExecuted, TypeOrderExecutedWithPrice,
		TypeOrderCancel, TypeOrderDelete, TypeOrderReplace, TypeTrade:
		return true
	}
	return false
}
