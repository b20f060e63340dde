package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dhkim-lab/marketsync/pkg/market"
	"github.com/dhkim-lab/marketsync/pkg/protocol"
)

// Synchronizer owns the canonical market state on the client side. All
// mutation happens on the goroutine running Run, one inbound message at
// a time: a message is applied in full (book mutation, aggregate diff,
// display notification) before the next is considered. Display
// collaborators only ever see read-only snapshots taken under the read
// lock.
type Synchronizer struct {
	mu       sync.RWMutex
	book     *market.Book
	tracker  *market.Tracker
	holdings market.Holdings

	handler *Handler
	sugar   *zap.SugaredLogger

	// OnApplied, when set, is invoked after every successfully applied
	// message that changed state. It runs on the synchronizer goroutine;
	// implementations must not call back into mutating methods.
	OnApplied func(Applied)
}

// Config carries the initial snapshot a synchronizer starts from.
type Config struct {
	Pcode    string
	Bids     []market.Order
	Asks     []market.Order
	Holdings market.Holdings
	Log      EventLog
	Sugar    *zap.SugaredLogger
}

// NewSynchronizer seeds state from the initial snapshot and computes
// the aggregate baseline by bulk counting.
func NewSynchronizer(cfg Config) *Synchronizer {
	book := market.NewBook(cfg.Pcode, cfg.Bids, cfg.Asks)
	tracker := market.NewTracker(cfg.Pcode, cfg.Bids, cfg.Asks)
	sugar := cfg.Sugar
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	return &Synchronizer{
		book:     book,
		tracker:  tracker,
		holdings: cfg.Holdings,
		handler:  NewHandler(cfg.Pcode, book, tracker, cfg.Log),
		sugar:    sugar,
	}
}

// Process decodes and applies one raw engine message. A duplicate order
// confirmation is logged and dropped; an unknown message type is
// returned as a fatal error, since it means the client and engine have
// diverged on the protocol.
func (s *Synchronizer) Process(raw []byte) error {
	msg, err := protocol.DecodeInbound(raw)
	if err != nil {
		return fmt.Errorf("inbound message: %w", err)
	}

	s.mu.Lock()
	applied, err := s.handler.Apply(msg)
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, market.ErrDuplicateOrder) {
			s.sugar.Warnw("duplicate_confirmation_dropped", "err", err)
			return nil
		}
		return err
	}

	if s.OnApplied != nil {
		s.OnApplied(applied)
	}
	return nil
}

// Run consumes inbound messages until the channel closes, the context
// is canceled, or a message fails to apply.
func (s *Synchronizer) Run(ctx context.Context, inbound <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-inbound:
			if !ok {
				return nil
			}
			if err := s.Process(raw); err != nil {
				return err
			}
		}
	}
}

// SetHoldings replaces the holdings snapshot. Holdings are pushed by
// the engine; the client never computes them.
func (s *Synchronizer) SetHoldings(h market.Holdings) {
	s.mu.Lock()
	s.holdings = h
	s.mu.Unlock()
}

// Holdings returns the current holdings snapshot.
func (s *Synchronizer) Holdings() market.Holdings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holdings
}

// Bids returns a copy of the open bids in insertion order.
func (s *Synchronizer) Bids() []market.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Bids()
}

// Asks returns a copy of the open asks in insertion order.
func (s *Synchronizer) Asks() []market.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Asks()
}

// Trades returns a copy of the executed trade log.
func (s *Synchronizer) Trades() []market.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Trades()
}

// Requested returns the per-asset count of the participant's open bids.
func (s *Synchronizer) Requested() market.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Requested()
}

// Offered returns the per-asset count of the participant's open asks.
func (s *Synchronizer) Offered() market.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Offered()
}
