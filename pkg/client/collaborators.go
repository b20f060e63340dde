package client

import (
	"go.uber.org/zap"

	"github.com/dhkim-lab/marketsync/pkg/protocol"
)

// Sender carries outbound commands to the remote matching engine.
type Sender interface {
	Send(cmd protocol.Command) error
}

// Confirmer is the yes/no confirmation widget. Show must not block the
// caller's goroutine indefinitely on state the core owns: the answer
// arrives through the callback, and only that continuation is deferred.
type Confirmer interface {
	Show(prompt string, answer func(accepted bool))
}

// EventLog is the participant-facing append-only log widget. Retention
// and rendering are display concerns.
type EventLog interface {
	Info(text string)
	Error(text string)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string, answer func(accepted bool))

func (f ConfirmerFunc) Show(prompt string, answer func(accepted bool)) { f(prompt, answer) }

// NewZapEventLog returns an EventLog backed by a zap logger, used when
// no display log widget is attached.
func NewZapEventLog(sugar *zap.SugaredLogger) EventLog {
	return &zapEventLog{sugar: sugar}
}

type zapEventLog struct {
	sugar *zap.SugaredLogger
}

func (l *zapEventLog) Info(text string)  { l.sugar.Infow("event", "text", text) }
func (l *zapEventLog) Error(text string) { l.sugar.Errorw("event", "text", text) }
