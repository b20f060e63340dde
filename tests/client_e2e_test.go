package tests

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dhkim-lab/marketsync/pkg/client"
	"github.com/dhkim-lab/marketsync/pkg/journal"
	"github.com/dhkim-lab/marketsync/pkg/market"
	"github.com/dhkim-lab/marketsync/pkg/protocol"
)

// capturedSender records outbound commands instead of hitting a wire.
type capturedSender struct {
	commands []protocol.Command
}

func (s *capturedSender) Send(cmd protocol.Command) error {
	s.commands = append(s.commands, cmd)
	return nil
}

type memoryLog struct {
	infos  []string
	errors []string
}

func (l *memoryLog) Info(text string)  { l.infos = append(l.infos, text) }
func (l *memoryLog) Error(text string) { l.errors = append(l.errors, text) }

func yes() client.Confirmer {
	return client.ConfirmerFunc(func(prompt string, answer func(bool)) { answer(true) })
}

func runSession(t *testing.T, s *client.Synchronizer, messages []string) {
	t.Helper()
	inbound := make(chan []byte, len(messages))
	for _, m := range messages {
		inbound <- []byte(m)
	}
	close(inbound)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Run(ctx, inbound); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// TestFullSessionFlow drives a whole small session through the
// synchronizer: entries, a trade against us, a cancel, and a broadcast
// error for someone else.
func TestFullSessionFlow(t *testing.T) {
	log := &memoryLog{}
	s := client.NewSynchronizer(client.Config{
		Pcode:    "p1",
		Holdings: market.EndowmentHoldings(map[string]int{"A": 5, "B": 5}, decimal.NewFromInt(100)),
		Log:      log,
	})

	j, err := journal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	defer j.Close()
	s.OnApplied = func(a client.Applied) {
		if a.Trade != nil {
			if err := j.AppendTrade(*a.Trade); err != nil {
				t.Errorf("journal append: %v", err)
			}
		}
	}

	runSession(t, s, []string{
		// Our bid on A and ask on B rest.
		`{"type":"confirm_enter","payload":{"order_id":1,"pcode":"p1","asset_name":"A","is_bid":true,"price":"10","volume":1}}`,
		`{"type":"confirm_enter","payload":{"order_id":2,"pcode":"p1","asset_name":"B","is_bid":false,"price":"20","volume":1}}`,
		// Someone else's bid on A.
		`{"type":"confirm_enter","payload":{"order_id":3,"pcode":"p2","asset_name":"A","is_bid":true,"price":"9","volume":1}}`,
		// Our resting bid is hit.
		`{"type":"confirm_trade","payload":{"making_orders":[{"order_id":1,"pcode":"p1","asset_name":"A","is_bid":true,"price":"10","volume":1}],"taking_order":{"order_id":4,"pcode":"p3","asset_name":"A","is_bid":false,"price":"10","volume":1},"asset_name":"A","timestamp":100}}`,
		// We cancel our ask on B.
		`{"type":"confirm_cancel","payload":{"order_id":2,"pcode":"p1","asset_name":"B","is_bid":false,"price":"20","volume":1}}`,
		// Broadcast error addressed to someone else: must not leak.
		`{"type":"error","payload":{"pcode":"p2","message":"insufficient holdings"}}`,
	})

	// Open state: only p2's bid on A remains.
	if got := len(s.Bids()); got != 1 {
		t.Errorf("bids = %d, want 1", got)
	}
	if got := len(s.Asks()); got != 0 {
		t.Errorf("asks = %d, want 0", got)
	}
	if got := len(s.Trades()); got != 1 {
		t.Errorf("trades = %d, want 1", got)
	}

	// Aggregates agree with bulk recomputation.
	if got, want := s.Requested(), market.CountOwn(s.Bids(), "p1"); !got.Equal(want) {
		t.Errorf("requested = %v, bulk = %v", got, want)
	}
	if got, want := s.Offered(), market.CountOwn(s.Asks(), "p1"); !got.Equal(want) {
		t.Errorf("offered = %v, bulk = %v", got, want)
	}

	// Narration: one trade line, one cancel line; the foreign error is
	// silent.
	wantInfos := []string{
		"You bought asset A for $10",
		"You canceled your ask",
	}
	if len(log.infos) != len(wantInfos) {
		t.Fatalf("infos = %v, want %v", log.infos, wantInfos)
	}
	for i := range wantInfos {
		if log.infos[i] != wantInfos[i] {
			t.Errorf("infos[%d] = %q, want %q", i, log.infos[i], wantInfos[i])
		}
	}
	if len(log.errors) != 0 {
		t.Errorf("errors = %v, want none", log.errors)
	}

	// The trade made it to the journal.
	trades, err := j.RecentTrades("A", 10)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(trades) != 1 || !trades[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("journal trades = %+v", trades)
	}
}

// TestDispatcherRoundTrip sends an accepted cancel through the
// dispatcher and replays the engine's confirmation into the
// synchronizer, mirroring the broadcast-without-correlation protocol.
func TestDispatcherRoundTrip(t *testing.T) {
	log := &memoryLog{}
	s := client.NewSynchronizer(client.Config{Pcode: "p1", Log: log})
	sender := &capturedSender{}
	d := client.NewDispatcher("p1", sender, yes(), log, nil)

	runSession(t, s, []string{
		`{"type":"confirm_enter","payload":{"order_id":5,"pcode":"p1","asset_name":"A","is_bid":true,"price":"15","volume":1}}`,
	})
	bids := s.Bids()
	if len(bids) != 1 {
		t.Fatalf("bids = %d, want 1", len(bids))
	}

	d.SubmitCancel(bids[0])
	if len(sender.commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(sender.commands))
	}
	cancel, ok := sender.commands[0].(protocol.Cancel)
	if !ok {
		t.Fatalf("command = %T, want Cancel", sender.commands[0])
	}

	// The engine broadcasts the confirmation; encode what it would echo.
	confirm := fmt.Sprintf(
		`{"type":"confirm_cancel","payload":{"order_id":%d,"pcode":"p1","asset_name":"A","is_bid":true,"price":"15","volume":1}}`,
		cancel.Order.ID,
	)
	runSession(t, s, []string{confirm})

	if got := len(s.Bids()); got != 0 {
		t.Errorf("bids = %d, want 0", got)
	}
	if got := s.Requested()["A"]; got != 0 {
		t.Errorf("requested[A] = %d, want 0", got)
	}
}

// TestRacingCancelConfirmations models the documented race: an inbound
// cancel confirmation lands while the local cancel dialog is still
// open; the later confirmation is a harmless no-op.
func TestRacingCancelConfirmations(t *testing.T) {
	log := &memoryLog{}
	s := client.NewSynchronizer(client.Config{Pcode: "p1", Log: log})
	sender := &capturedSender{}

	var deferred func(bool)
	dialog := client.ConfirmerFunc(func(prompt string, answer func(bool)) {
		// Hold the dialog open; the continuation runs later.
		deferred = answer
	})
	d := client.NewDispatcher("p1", sender, dialog, log, nil)

	enter := `{"type":"confirm_enter","payload":{"order_id":6,"pcode":"p1","asset_name":"A","is_bid":true,"price":"10","volume":1}}`
	cancelConfirm := `{"type":"confirm_cancel","payload":{"order_id":6,"pcode":"p1","asset_name":"A","is_bid":true,"price":"10","volume":1}}`

	runSession(t, s, []string{enter})
	d.SubmitCancel(s.Bids()[0])

	// The engine's confirmation arrives while the dialog is open.
	runSession(t, s, []string{cancelConfirm})
	if got := len(s.Bids()); got != 0 {
		t.Fatalf("bids = %d, want 0", got)
	}

	// The participant finally clicks yes; the duplicate confirmation
	// that follows must be a no-op.
	deferred(true)
	if len(sender.commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(sender.commands))
	}
	runSession(t, s, []string{cancelConfirm})
	if got := len(s.Bids()); got != 0 {
		t.Errorf("bids = %d, want 0", got)
	}
	if got := s.Requested()["A"]; got != 0 {
		t.Errorf("requested[A] = %d, want 0", got)
	}
}

// TestUnknownMessageFatal checks that contract drift stops the session
// instead of being swallowed.
func TestUnknownMessageFatal(t *testing.T) {
	s := client.NewSynchronizer(client.Config{Pcode: "p1", Log: &memoryLog{}})

	inbound := make(chan []byte, 1)
	inbound <- []byte(`{"type":"confirm_partial_fill","payload":{}}`)
	close(inbound)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Run(ctx, inbound)
	if !errors.Is(err, protocol.ErrUnknownType) {
		t.Fatalf("Run err = %v, want ErrUnknownType", err)
	}
}
