// Package journal persists the session's confirmed activity to a
// pebble database: the append-only trade log and the narration events
// shown to the participant. It exists for display and post-session
// inspection; the synchronizer never reads it back into live state.
package journal

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"github.com/dhkim-lab/marketsync/pkg/market"
)

// Key schema:
//   trade:<asset>:<timestamp>:<id> → Trade (JSON)
//   event:<timestamp>:<id>         → Event (JSON)
// Timestamps are zero-padded for lexicographic scans.
const (
	prefixTrade = "trade:"
	prefixEvent = "event:"
)

// Event is one narration or error line shown to the participant.
type Event struct {
	Kind      string `json:"kind"` // "info" or "error"
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type Journal struct {
	db *pebble.DB
}

// Open creates or reopens a journal at dir.
func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func tradeKey(asset string, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixTrade, asset, timestamp, uuid.NewString()))
}

func tradePrefix(asset string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTrade, asset))
}

func eventKey(timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixEvent, timestamp, uuid.NewString()))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// AppendTrade records one confirmed trade. Trades are never updated or
// deleted; identical trades get distinct keys.
func (j *Journal) AppendTrade(t market.Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	if err := j.db.Set(tradeKey(t.AssetName, t.Timestamp), data, pebble.NoSync); err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

// RecentTrades returns up to limit trades for one asset, newest first.
func (j *Journal) RecentTrades(asset string, limit int) ([]market.Trade, error) {
	prefix := tradePrefix(asset)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var trades []market.Trade
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var t market.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// AppendEvent records one participant-facing log line.
func (j *Journal) AppendEvent(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := j.db.Set(eventKey(e.Timestamp), data, pebble.NoSync); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Events returns every recorded event in timestamp order.
func (j *Journal) Events() ([]Event, error) {
	prefix := []byte(prefixEvent)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []Event
	for iter.First(); iter.Valid(); iter.Next() {
		var e Event
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
