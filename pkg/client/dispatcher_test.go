package client

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dhkim-lab/marketsync/pkg/market"
	"github.com/dhkim-lab/marketsync/pkg/protocol"
)

type fakeSender struct {
	sent []protocol.Command
}

func (f *fakeSender) Send(cmd protocol.Command) error {
	f.sent = append(f.sent, cmd)
	return nil
}

type fakeLog struct {
	infos  []string
	errors []string
}

func (f *fakeLog) Info(text string)  { f.infos = append(f.infos, text) }
func (f *fakeLog) Error(text string) { f.errors = append(f.errors, text) }

func answerWith(accepted bool) Confirmer {
	return ConfirmerFunc(func(prompt string, answer func(bool)) { answer(accepted) })
}

func newTestDispatcher(sender Sender, confirmer Confirmer, log EventLog) *Dispatcher {
	return NewDispatcher("p1", sender, confirmer, log, zap.NewNop().Sugar())
}

func TestSubmitEnterSendsCommand(t *testing.T) {
	sender := &fakeSender{}
	log := &fakeLog{}
	d := newTestDispatcher(sender, answerWith(true), log)

	if err := d.SubmitEnter("10.5", 1, true, "A"); err != nil {
		t.Fatalf("SubmitEnter: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d commands, want 1", len(sender.sent))
	}
	enter, ok := sender.sent[0].(protocol.Enter)
	if !ok {
		t.Fatalf("command = %T, want Enter", sender.sent[0])
	}
	if !enter.Price.Equal(decimal.RequireFromString("10.5")) || !enter.IsBid || enter.AssetName != "A" || enter.Pcode != "p1" {
		t.Errorf("enter = %+v", enter)
	}
}

// A price that does not parse never produces a message and never
// touches state; the failure surfaces only in the participant log.
func TestSubmitEnterValidationGate(t *testing.T) {
	tests := []string{"", "abc", "10..5", "NaN-ish"}
	for _, price := range tests {
		t.Run(price, func(t *testing.T) {
			sender := &fakeSender{}
			log := &fakeLog{}
			d := newTestDispatcher(sender, answerWith(true), log)

			if err := d.SubmitEnter(price, 1, true, "A"); err != nil {
				t.Fatalf("SubmitEnter: %v", err)
			}
			if len(sender.sent) != 0 {
				t.Errorf("sent = %d commands, want 0", len(sender.sent))
			}
			if len(log.errors) != 1 {
				t.Errorf("log errors = %v, want one entry", log.errors)
			}
		})
	}
}

func TestSubmitCancelConfirmationGate(t *testing.T) {
	o := market.Order{ID: 1, Pcode: "p1", AssetName: "A", IsBid: true, Price: decimal.NewFromInt(10), Volume: 1}

	t.Run("declined", func(t *testing.T) {
		sender := &fakeSender{}
		d := newTestDispatcher(sender, answerWith(false), &fakeLog{})
		d.SubmitCancel(o)
		if len(sender.sent) != 0 {
			t.Errorf("sent = %d commands, want 0 after decline", len(sender.sent))
		}
	})

	t.Run("accepted", func(t *testing.T) {
		sender := &fakeSender{}
		d := newTestDispatcher(sender, answerWith(true), &fakeLog{})
		d.SubmitCancel(o)
		if len(sender.sent) != 1 {
			t.Fatalf("sent = %d commands, want 1", len(sender.sent))
		}
		cancel, ok := sender.sent[0].(protocol.Cancel)
		if !ok {
			t.Fatalf("command = %T, want Cancel", sender.sent[0])
		}
		if !cancel.Order.Same(o) {
			t.Errorf("cancel order = %+v, want %+v", cancel.Order, o)
		}
	})
}

func TestSubmitAcceptConfirmationGate(t *testing.T) {
	other := market.Order{ID: 2, Pcode: "p2", AssetName: "B", IsBid: false, Price: decimal.NewFromInt(12), Volume: 1}

	t.Run("declined", func(t *testing.T) {
		sender := &fakeSender{}
		d := newTestDispatcher(sender, answerWith(false), &fakeLog{})
		d.SubmitAccept(other)
		if len(sender.sent) != 0 {
			t.Errorf("sent = %d commands, want 0 after decline", len(sender.sent))
		}
	})

	t.Run("accepted", func(t *testing.T) {
		sender := &fakeSender{}
		d := newTestDispatcher(sender, answerWith(true), &fakeLog{})
		d.SubmitAccept(other)
		if len(sender.sent) != 1 {
			t.Fatalf("sent = %d commands, want 1", len(sender.sent))
		}
		if _, ok := sender.sent[0].(protocol.AcceptImmediate); !ok {
			t.Fatalf("command = %T, want AcceptImmediate", sender.sent[0])
		}
	})
}

// Accepting your own order is a silent no-op: no prompt, no message.
func TestSubmitAcceptSelfTradeGuard(t *testing.T) {
	sender := &fakeSender{}
	prompted := false
	confirmer := ConfirmerFunc(func(prompt string, answer func(bool)) {
		prompted = true
		answer(true)
	})
	d := newTestDispatcher(sender, confirmer, &fakeLog{})

	own := market.Order{ID: 3, Pcode: "p1", AssetName: "A", IsBid: true, Price: decimal.NewFromInt(10), Volume: 1}
	d.SubmitAccept(own)

	if prompted {
		t.Error("confirmation shown for own order")
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %d commands, want 0", len(sender.sent))
	}
}

func TestSubmitAcceptPromptDescribesTerms(t *testing.T) {
	var prompt string
	confirmer := ConfirmerFunc(func(p string, answer func(bool)) {
		prompt = p
		answer(false)
	})
	d := newTestDispatcher(&fakeSender{}, confirmer, &fakeLog{})

	bid := market.Order{ID: 4, Pcode: "p2", AssetName: "A", IsBid: true, Price: decimal.NewFromInt(10), Volume: 1}
	d.SubmitAccept(bid)

	want := "Do you want to buy asset A for $10?"
	if prompt != want {
		t.Errorf("prompt = %q, want %q", prompt, want)
	}
}
