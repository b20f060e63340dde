package client

import (
	"fmt"

	"github.com/dhkim-lab/marketsync/pkg/market"
	"github.com/dhkim-lab/marketsync/pkg/protocol"
)

// Applied describes the outcome of one inbound message: the net book
// diff and, for trade confirmations, the appended trade record.
type Applied struct {
	Diff  market.Diff
	Trade *market.Trade
}

// Handler consumes decoded engine confirmations and applies the
// corresponding mutation to the book, keeping the aggregate tracker in
// step and narrating the participant's own activity to the event log.
// It holds no per-command correlation state: each message is applied
// independently and in full.
type Handler struct {
	localPcode string
	book       *market.Book
	tracker    *market.Tracker
	log        EventLog
}

// NewHandler builds a handler over the given book and tracker. Identity
// is injected explicitly.
func NewHandler(localPcode string, book *market.Book, tracker *market.Tracker, log EventLog) *Handler {
	return &Handler{
		localPcode: localPcode,
		book:       book,
		tracker:    tracker,
		log:        log,
	}
}

// Apply processes one confirmation to completion. The variant set is
// sealed at decode time; the default arm only fires if the protocol
// package grows a variant this switch does not cover, and that is a
// contract violation to surface, not to swallow.
func (h *Handler) Apply(msg protocol.Inbound) (Applied, error) {
	switch m := msg.(type) {
	case protocol.ConfirmEnter:
		diff, err := h.book.Insert(m.Order)
		if err != nil {
			return Applied{}, fmt.Errorf("confirm_enter: %w", err)
		}
		h.tracker.Apply(diff)
		return Applied{Diff: diff}, nil

	case protocol.ConfirmTrade:
		trade, mine, diff := h.book.ApplyTrade(m.MakingOrders, m.TakingOrder, m.AssetName, m.Timestamp)
		h.tracker.Apply(diff)
		for _, o := range mine {
			verb := "sold"
			if o.IsBid {
				verb = "bought"
			}
			h.log.Info(fmt.Sprintf("You %s asset %s for $%s", verb, o.AssetName, trade.Price.String()))
		}
		return Applied{Diff: diff, Trade: &trade}, nil

	case protocol.ConfirmCancel:
		diff := h.book.Remove(m.Order)
		h.tracker.Apply(diff)
		if m.Order.Pcode == h.localPcode {
			side := "ask"
			if m.Order.IsBid {
				side = "bid"
			}
			h.log.Info(fmt.Sprintf("You canceled your %s", side))
		}
		return Applied{Diff: diff}, nil

	case protocol.ErrorNotice:
		// Broadcast channel: only surface errors addressed to us.
		if m.Pcode == h.localPcode {
			h.log.Error(m.Message)
		}
		return Applied{}, nil

	default:
		return Applied{}, fmt.Errorf("apply %T: %w", msg, protocol.ErrUnknownType)
	}
}
