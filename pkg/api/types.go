package api

import "github.com/dhkim-lab/marketsync/pkg/market"

// Response and WebSocket payload types for the display surface. Display
// components read these snapshots; they never write state back.

// ==============================
// REST Response Types
// ==============================

// BookSnapshot is the current open-order state, insertion order kept.
type BookSnapshot struct {
	Bids      []market.Order `json:"bids"`
	Asks      []market.Order `json:"asks"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
}

// AggregatesInfo is the participant's own open interest per asset.
type AggregatesInfo struct {
	Requested map[string]int `json:"requested"` // open local bids
	Offered   map[string]int `json:"offered"`   // open local asks
}

// SessionInfo describes the running period.
type SessionInfo struct {
	Pcode         string   `json:"pcode"`
	AssetNames    []string `json:"asset_names"`
	TimeRemaining int      `json:"time_remaining"` // seconds
	AllowShort    bool     `json:"allow_short"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// REST Request Types
// ==============================

// EnterRequest is the payload for POST /api/v1/orders. Price stays a
// string so the dispatcher's validation gate decides what parses.
type EnterRequest struct {
	Price     string `json:"price"`
	Volume    int    `json:"volume"`
	IsBid     bool   `json:"is_bid"`
	AssetName string `json:"asset_name"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSClientMessage is anything a display client sends over /ws.
type WSClientMessage struct {
	Op       string   `json:"op"`                 // "subscribe", "unsubscribe", "confirm"
	Channels []string `json:"channels,omitempty"` // for subscribe ops
	ID       string   `json:"id,omitempty"`       // confirm request being answered
	Accepted bool     `json:"accepted,omitempty"` // confirm answer
}

// BookUpdate is broadcast after every applied confirmation.
type BookUpdate struct {
	Type      string         `json:"type"` // "book"
	Bids      []market.Order `json:"bids"`
	Asks      []market.Order `json:"asks"`
	Requested map[string]int `json:"requested"`
	Offered   map[string]int `json:"offered"`
	Timestamp int64          `json:"timestamp"`
}

// TradeUpdate is broadcast when a trade confirmation lands.
type TradeUpdate struct {
	Type  string       `json:"type"` // "trade"
	Trade market.Trade `json:"trade"`
}

// LogUpdate carries one participant-facing log line.
type LogUpdate struct {
	Type string `json:"type"` // "log"
	Kind string `json:"kind"` // "info" or "error"
	Text string `json:"text"`
}

// ClockUpdate carries the countdown.
type ClockUpdate struct {
	Type      string `json:"type"` // "clock"
	Remaining int    `json:"remaining"`
}

// ConfirmRequest asks the display layer's modal widget a yes/no
// question; the reply comes back as a WSClientMessage with op
// "confirm" and the same ID.
type ConfirmRequest struct {
	Type   string `json:"type"` // "confirm_request"
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}
