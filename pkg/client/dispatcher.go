package client

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dhkim-lab/marketsync/pkg/market"
	"github.com/dhkim-lab/marketsync/pkg/protocol"
)

// Dispatcher turns validated user intents into outbound commands,
// gated by confirmation where required. It never mutates market state:
// orders appear only after the engine confirms them, so the only
// observable effect here is an outbound message (or, for declined
// confirmations, nothing at all).
type Dispatcher struct {
	pcode     string
	sender    Sender
	confirmer Confirmer
	log       EventLog
	sugar     *zap.SugaredLogger
}

// NewDispatcher builds a dispatcher for the given local participant.
// Identity is injected here, never read from ambient state.
func NewDispatcher(pcode string, sender Sender, confirmer Confirmer, log EventLog, sugar *zap.SugaredLogger) *Dispatcher {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		pcode:     pcode,
		sender:    sender,
		confirmer: confirmer,
		log:       log,
		sugar:     sugar,
	}
}

// SubmitEnter validates and sends an order entry. A price that does not
// parse as a number is a local validation error: it is reported to the
// log and nothing is sent.
func (d *Dispatcher) SubmitEnter(price string, volume int, isBid bool, assetName string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		d.log.Error("Invalid order entered")
		d.sugar.Warnw("enter_rejected", "reason", "invalid price", "price", price)
		return nil
	}

	cmd := protocol.Enter{
		Price:     p,
		Volume:    volume,
		IsBid:     isBid,
		AssetName: assetName,
		Pcode:     d.pcode,
	}
	if err := d.sender.Send(cmd); err != nil {
		return fmt.Errorf("send enter: %w", err)
	}
	return nil
}

// SubmitCancel asks for confirmation and, if accepted, sends a cancel
// for the given order. Declining closes the dialog and changes nothing.
func (d *Dispatcher) SubmitCancel(order market.Order) {
	d.confirmer.Show("Are you sure you want to remove this order?", func(accepted bool) {
		if !accepted {
			return
		}
		if err := d.sender.Send(protocol.Cancel{Order: order}); err != nil {
			d.sugar.Errorw("send_cancel_failed", "err", err)
		}
	})
}

// SubmitAccept asks for confirmation and, if accepted, sends an
// immediate accept against the given resting order. Accepting your own
// order is a silent no-op: the client never self-trades.
func (d *Dispatcher) SubmitAccept(order market.Order) {
	if order.Pcode == d.pcode {
		return
	}

	verb := "sell"
	if order.IsBid {
		verb = "buy"
	}
	prompt := fmt.Sprintf("Do you want to %s asset %s for $%s?", verb, order.AssetName, order.Price.String())
	d.confirmer.Show(prompt, func(accepted bool) {
		if !accepted {
			return
		}
		if err := d.sender.Send(protocol.AcceptImmediate{Order: order}); err != nil {
			d.sugar.Errorw("send_accept_failed", "err", err)
		}
	})
}
