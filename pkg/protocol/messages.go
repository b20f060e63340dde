// Package protocol defines the message contract between the client and
// the remote matching engine. Every message travels as a JSON envelope
// {"type": ..., "payload": ...}; inbound payloads decode into a sealed
// set of variants so an unhandled kind is a decode error, never a
// silent miss.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dhkim-lab/marketsync/pkg/market"
)

// ErrUnknownType marks an inbound envelope whose type is outside the
// contract. The engine is assumed never to emit one, so seeing it means
// client and engine have diverged on protocol version.
var ErrUnknownType = errors.New("unknown message type")

const (
	typeEnter  = "enter"
	typeCancel = "cancel"
	typeAccept = "accept_immediate"

	typeConfirmEnter  = "confirm_enter"
	typeConfirmTrade  = "confirm_trade"
	typeConfirmCancel = "confirm_cancel"
	typeError         = "error"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ==============================
// Outbound commands
// ==============================

// Command is an outbound message to the engine.
type Command interface {
	commandType() string
	payload() any
}

// Enter asks the engine to rest a new order. The order only appears in
// the book once a ConfirmEnter comes back.
type Enter struct {
	Price     decimal.Decimal `json:"price"`
	Volume    int             `json:"volume"`
	IsBid     bool            `json:"is_bid"`
	AssetName string          `json:"asset_name"`
	Pcode     string          `json:"pcode"`
}

// Cancel asks the engine to remove a resting order. The full order is
// carried so the engine can match by id or natural key.
type Cancel struct {
	Order market.Order
}

// AcceptImmediate asks the engine to trade against a resting order at
// its listed price.
type AcceptImmediate struct {
	Order market.Order
}

func (Enter) commandType() string           { return typeEnter }
func (Cancel) commandType() string          { return typeCancel }
func (AcceptImmediate) commandType() string { return typeAccept }

func (c Enter) payload() any           { return c }
func (c Cancel) payload() any          { return c.Order }
func (c AcceptImmediate) payload() any { return c.Order }

// EncodeCommand wraps a command in the wire envelope.
func EncodeCommand(c Command) ([]byte, error) {
	raw, err := json.Marshal(c.payload())
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", c.commandType(), err)
	}
	return json.Marshal(envelope{Type: c.commandType(), Payload: raw})
}

// ==============================
// Inbound confirmations
// ==============================

// Inbound is one of the four confirmation variants broadcast by the
// engine. The set is sealed: nothing outside this package satisfies it.
type Inbound interface {
	inboundType() string
}

// ConfirmEnter reports a newly resting order.
type ConfirmEnter struct {
	Order market.Order
}

// ConfirmTrade reports an executed match.
type ConfirmTrade struct {
	MakingOrders []market.Order `json:"making_orders"`
	TakingOrder  market.Order   `json:"taking_order"`
	AssetName    string         `json:"asset_name"`
	Timestamp    int64          `json:"timestamp"`
}

// ConfirmCancel reports a removed order.
type ConfirmCancel struct {
	Order market.Order
}

// ErrorNotice reports an engine-side error addressed to one participant.
// The channel is a broadcast: notices for other participants must not
// surface to this one.
type ErrorNotice struct {
	Pcode   string `json:"pcode"`
	Message string `json:"message"`
}

func (ConfirmEnter) inboundType() string  { return typeConfirmEnter }
func (ConfirmTrade) inboundType() string  { return typeConfirmTrade }
func (ConfirmCancel) inboundType() string { return typeConfirmCancel }
func (ErrorNotice) inboundType() string   { return typeError }

// DecodeInbound parses one engine message. An envelope type outside the
// contract yields ErrUnknownType; callers must treat that as fatal
// rather than drop it.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case typeConfirmEnter:
		var o market.Order
		if err := json.Unmarshal(env.Payload, &o); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ConfirmEnter{Order: o}, nil

	case typeConfirmTrade:
		var m ConfirmTrade
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return m, nil

	case typeConfirmCancel:
		var o market.Order
		if err := json.Unmarshal(env.Payload, &o); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ConfirmCancel{Order: o}, nil

	case typeError:
		var m ErrorNotice
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
