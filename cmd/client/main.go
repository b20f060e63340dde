package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dhkim-lab/marketsync/params"
	"github.com/dhkim-lab/marketsync/pkg/api"
	"github.com/dhkim-lab/marketsync/pkg/client"
	"github.com/dhkim-lab/marketsync/pkg/journal"
	"github.com/dhkim-lab/marketsync/pkg/market"
	"github.com/dhkim-lab/marketsync/pkg/transport"
	"github.com/dhkim-lab/marketsync/pkg/util"
)

// displayLog fans participant-facing log lines out to the structured
// logger, the journal, and any connected display clients.
type displayLog struct {
	sugar     *zap.SugaredLogger
	journal   *journal.Journal
	broadcast func(kind, text string)
}

func (l *displayLog) emit(kind, text string) {
	if kind == "error" {
		l.sugar.Errorw("event", "text", text)
	} else {
		l.sugar.Infow("event", "text", text)
	}
	if err := l.journal.AppendEvent(journal.Event{Kind: kind, Text: text, Timestamp: time.Now().UnixMilli()}); err != nil {
		l.sugar.Warnw("journal_event_failed", "err", err)
	}
	if l.broadcast != nil {
		l.broadcast(kind, text)
	}
}

func (l *displayLog) Info(text string)  { l.emit("info", text) }
func (l *displayLog) Error(text string) { l.emit("error", text) }

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Client.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("client_starting", "pcode", cfg.Client.Pcode, "engine", cfg.Engine.URL)

	j, err := journal.Open(cfg.Client.JournalDir)
	if err != nil {
		sugar.Fatalw("journal_open_failed", "err", err)
	}
	defer j.Close()

	endowments, err := cfg.Session.Endowments()
	if err != nil {
		sugar.Fatalw("bad_session_config", "err", err)
	}
	holdings := market.EndowmentHoldings(endowments, cfg.Session.CashEndowment)

	eventLog := &displayLog{sugar: sugar, journal: j}

	// ---- Core: market-state synchronizer ----
	sync := client.NewSynchronizer(client.Config{
		Pcode:    cfg.Client.Pcode,
		Holdings: holdings,
		Log:      eventLog,
		Sugar:    sugar,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Engine transport ----
	conn := transport.NewConn(cfg.Engine.URL, sugar)
	conn.Start(ctx)
	defer conn.Stop()

	// ---- Display surface ----
	countdown := util.NewCountdown(util.RealClock{}, int(cfg.Session.PeriodLength.Seconds()))
	server := api.NewServer(sync, j, countdown, cfg.Session, cfg.Client.Pcode, sugar)
	eventLog.broadcast = server.BroadcastLog

	// The hub doubles as the modal confirmation widget.
	dispatcher := client.NewDispatcher(cfg.Client.Pcode, conn, server.Hub(), eventLog, sugar)
	server.AttachDispatcher(dispatcher)

	sync.OnApplied = func(applied client.Applied) {
		if applied.Trade != nil {
			if err := j.AppendTrade(*applied.Trade); err != nil {
				sugar.Warnw("journal_trade_failed", "err", err)
			}
			server.BroadcastTrade(*applied.Trade)
		}
		if !applied.Diff.Empty() {
			server.BroadcastBook()
		}
	}

	go func() {
		if err := server.Start(cfg.Client.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	go countdown.Run(ctx, server.BroadcastClock)

	// ---- Run the synchronizer to completion ----
	// One message at a time, in arrival order. An unknown message type
	// means the client and engine disagree on the protocol: exit loudly
	// rather than trade against a view that may already be wrong.
	if err := sync.Run(ctx, conn.Inbound()); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("synchronizer_failed", "err", err)
	}
	sugar.Info("client_stopped")
}
