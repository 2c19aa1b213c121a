package bookdemo

import (
	"sync"

	"github.com/mickelsamuel/dpdk-itch5-feedhandler/internal/event"
)

// book holds the resting orders for one symbol.
type book struct {
	bids   *priceTree
	asks   *priceTree
	orders *orderMap
}

func newBook() *book {
	return &book{
		bids:   newPriceTree(false), // descending: best bid is highest price
		asks:   newPriceTree(true),  // ascending: best ask is lowest price
		orders: newOrderMap(1024),
	}
}

// orderAllocator reuses order values across inserts/removes, grounded on
// the teacher's sync.Pool-backed allocator.
type orderAllocator struct {
	pool sync.Pool
}

func newOrderAllocator() *orderAllocator {
	return &orderAllocator{pool: sync.Pool{New: func() any { return &order{} }}}
}

func (a *orderAllocator) get() *order {
	o := a.pool.Get().(*order)
	*o = order{}
	return o
}

func (a *orderAllocator) put(o *order) {
	o.next, o.prev, o.level = nil, nil, nil
	a.pool.Put(o)
}

// Market tracks one book per stock symbol. It is the sole type
// cmd/feedhandler wires the queue's consumer side to.
type Market struct {
	mu        sync.Mutex
	books     map[[8]byte]*book
	allocator *orderAllocator
}

func NewMarket() *Market {
	return &Market{
		books:     make(map[[8]byte]*book),
		allocator: newOrderAllocator(),
	}
}

func (m *Market) bookFor(stock [8]byte) *book {
	b, ok := m.books[stock]
	if !ok {
		b = newBook()
		m.books[stock] = b
	}
	return b
}

// ApplyEvent folds one normalized event into the relevant symbol's book.
// Trade events report a completed execution but carry no resting-order
// state to update, matching the ITCH semantics that 'P' trades are not
// displayed on the order book.
func (m *Market) ApplyEvent(ev event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case event.KindAddOrder:
		b := m.bookFor(ev.Stock)
		o := m.allocator.get()
		o.orderRef = ev.OrderRef
		o.quantity = ev.Quantity
		o.buy = ev.Side == event.SideBuy
		tree := b.asks
		if o.buy {
			tree = b.bids
		}
		level := tree.getOrCreate(ev.Price)
		addOrderToLevel(level, o)
		b.orders.put(o)

	case event.KindOrderExecuted, event.KindOrderCancel:
		b, o := m.find(ev.Stock, ev.OrderRef)
		if o == nil {
			return
		}
		reduceBy := ev.ExecutedQuantity
		if reduceBy >= o.quantity {
			m.removeOrder(b, o)
			return
		}
		o.quantity -= reduceBy
		o.level.totalQty -= int64(reduceBy)

	case event.KindOrderDelete:
		b, o := m.find(ev.Stock, ev.OrderRef)
		if o != nil {
			m.removeOrder(b, o)
		}

	case event.KindOrderReplace:
		b, o := m.find(ev.Stock, ev.OrderRef)
		if o == nil {
			return
		}
		buy := o.buy
		m.removeOrder(b, o)

		n := m.allocator.get()
		n.orderRef = ev.NewOrderRef
		n.quantity = ev.Quantity
		n.buy = buy
		tree := b.asks
		if buy {
			tree = b.bids
		}
		level := tree.getOrCreate(ev.Price)
		addOrderToLevel(level, n)
		b.orders.put(n)

	case event.KindTrade:
		// No resting-order state to update.
	}
}

// find looks orderRef up in stock's book first. ITCH executions, cancels,
// deletes and replaces carry no stock symbol, so their events arrive with a
// zero Stock; when the named book does not hold the order, every book is
// searched by order reference.
func (m *Market) find(stock [8]byte, orderRef uint64) (*book, *order) {
	if b, ok := m.books[stock]; ok {
		if o := b.orders.get(orderRef); o != nil {
			return b, o
		}
	}
	for _, b := range m.books {
		if o := b.orders.get(orderRef); o != nil {
			return b, o
		}
	}
	return nil, nil
}

func (m *Market) removeOrder(b *book, o *order) {
	level := o.level
	tree := b.asks
	if o.buy {
		tree = b.bids
	}
	removeOrderFromLevel(o)
	if level != nil && level.orderCount == 0 {
		tree.remove(level.price)
	}
	b.orders.delete(o.orderRef)
	m.allocator.put(o)
}

// BestBidAsk returns the best resting bid and ask price for stock. ok is
// false if the symbol has no book yet.
func (m *Market) BestBidAsk(stock [8]byte) (bid, ask int64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.books[stock]
	if !exists {
		return 0, 0, false
	}
	if lvl := b.bids.best(); lvl != nil {
		bid = lvl.price
	}
	if lvl := b.asks.best(); lvl != nil {
		ask = lvl.price
	}
	return bid, ask, true
}
