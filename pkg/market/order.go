package market

import (
	"github.com/shopspring/decimal"
)

// Order is a resting bid or ask for Volume units of a named asset.
// Orders are immutable once created: cancellation removes them from the
// book, it never mutates them.
type Order struct {
	// ID is assigned by the remote engine. 0 means the engine did not
	// supply one and identity falls back to the natural key.
	ID        int64           `json:"order_id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Volume    int             `json:"volume"`
	IsBid     bool            `json:"is_bid"`
	AssetName string          `json:"asset_name"`
	Pcode     string          `json:"pcode"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Same reports whether two orders denote the same resting order.
// Engine IDs win when both sides carry one; otherwise the natural key
// (pcode, asset, side, price, timestamp) decides.
func (o Order) Same(other Order) bool {
	if o.ID != 0 && other.ID != 0 {
		return o.ID == other.ID
	}
	return o.Pcode == other.Pcode &&
		o.AssetName == other.AssetName &&
		o.IsBid == other.IsBid &&
		o.Price.Equal(other.Price) &&
		o.Timestamp == other.Timestamp
}

// Trade records one executed match. Trades are append-only: they are
// never mutated or removed. Under unit volume MakingOrders has length 1,
// but nothing here assumes that.
type Trade struct {
	MakingOrders []Order         `json:"making_orders"`
	TakingOrder  Order           `json:"taking_order"`
	AssetName    string          `json:"asset_name"`
	Price        decimal.Decimal `json:"price"` // execution price, from the first making order
	Timestamp    int64           `json:"timestamp"`
}

// Diff describes one atomic change to the book: which orders were added
// and which removed. Mutators return it so derived state can be updated
// incrementally instead of through any implicit reactivity.
type Diff struct {
	Added   []Order
	Removed []Order
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
