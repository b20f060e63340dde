package market

import (
	"errors"
	"fmt"
)

// ErrDuplicateOrder is returned when an insert carries the identity of
// an order already resting in the book. The book rejects the duplicate
// and stays unchanged.
var ErrDuplicateOrder = errors.New("order already in book")

// Book holds the participant's view of open bids, open asks and executed
// trades for one market. The remote engine is authoritative; Book only
// mirrors confirmed state. Insertion order is preserved on both sides,
// purely for display.
//
// Book is not internally synchronized: all mutation must happen on the
// synchronizer goroutine, which owns it exclusively.
type Book struct {
	localPcode string

	bids   []Order
	asks   []Order
	trades []Trade
}

// NewBook returns a book seeded with an initial snapshot of open orders.
// localPcode attributes orders and trades to "the local participant".
func NewBook(localPcode string, bids, asks []Order) *Book {
	b := &Book{localPcode: localPcode}
	b.bids = append(b.bids, bids...)
	b.asks = append(b.asks, asks...)
	return b
}

func (b *Book) side(isBid bool) *[]Order {
	if isBid {
		return &b.bids
	}
	return &b.asks
}

// Insert appends a confirmed order to the side named by IsBid.
// A duplicate identity on that side is rejected with ErrDuplicateOrder.
func (b *Book) Insert(o Order) (Diff, error) {
	side := b.side(o.IsBid)
	for _, existing := range *side {
		if existing.Same(o) {
			return Diff{}, fmt.Errorf("insert %s %v: %w", o.AssetName, o.Price, ErrDuplicateOrder)
		}
	}
	*side = append(*side, o)
	return Diff{Added: []Order{o}}, nil
}

// Remove deletes the first order matching o's identity from the side
// named by o.IsBid. Absence is not an error: a confirmation may race an
// earlier removal, so the result is simply an empty diff.
func (b *Book) Remove(o Order) Diff {
	side := b.side(o.IsBid)
	for i, existing := range *side {
		if existing.Same(o) {
			removed := existing
			*side = append((*side)[:i], (*side)[i+1:]...)
			return Diff{Removed: []Order{removed}}
		}
	}
	return Diff{}
}

// ApplyTrade removes every involved order from its open side (no-op per
// order when already absent), appends a Trade record and returns it
// together with the subset of involved orders owned by the local
// participant and the net diff. The trade log is append-only and not
// deduplicated: re-applying an identical trade appends a second record
// but leaves the open sides untouched.
func (b *Book) ApplyTrade(making []Order, taking Order, assetName string, timestamp int64) (Trade, []Order, Diff) {
	var diff Diff
	var mine []Order

	all := make([]Order, 0, len(making)+1)
	all = append(all, making...)
	all = append(all, taking)
	for _, o := range all {
		d := b.Remove(o)
		diff.Removed = append(diff.Removed, d.Removed...)
		if o.Pcode == b.localPcode {
			mine = append(mine, o)
		}
	}

	trade := Trade{
		MakingOrders: making,
		TakingOrder:  taking,
		AssetName:    assetName,
		Timestamp:    timestamp,
	}
	if len(making) > 0 {
		trade.Price = making[0].Price
	}
	b.trades = append(b.trades, trade)

	return trade, mine, diff
}

// Bids returns a copy of the open bids in insertion order.
func (b *Book) Bids() []Order {
	return append([]Order(nil), b.bids...)
}

// Asks returns a copy of the open asks in insertion order.
func (b *Book) Asks() []Order {
	return append([]Order(nil), b.asks...)
}

// Trades returns a copy of the executed trade log.
func (b *Book) Trades() []Trade {
	return append([]Trade(nil), b.trades...)
}
