// Package bookdemo is a small reference consumer of event.Event: it folds
// AddOrder/OrderExecuted/OrderCancel/OrderDelete/OrderReplace events into
// per-symbol best-bid/best-ask numbers. It exists to exercise the queue's
// consumer side end-to-end and to give cmd/feedhandler something real to
// hand events to; it is not an order-book implementation in the production
// sense — no matching, no risk checks, no persistence.
package bookdemo

// order is one resting order within a price level's FIFO chain.
type order struct {
	orderRef uint64
	quantity uint32
	buy      bool
	level    *priceLevel
	next     *order
	prev     *order
}

// priceLevel aggregates the orders resting at one price.
type priceLevel struct {
	price      int64
	totalQty   int64
	orderCount int
	first      *order
	last       *order
}

// fastHash64 is a murmur-style finalizer used to spread order references
// across OrderMap buckets.
func fastHash64(key uint64) uint64 {
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33
	key *= 0xc4ceb9fe1a85ec53
	key ^= key >> 33
	return key
}
