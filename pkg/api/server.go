package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/dhkim-lab/marketsync/params"
	"github.com/dhkim-lab/marketsync/pkg/client"
	"github.com/dhkim-lab/marketsync/pkg/journal"
	"github.com/dhkim-lab/marketsync/pkg/market"
	"github.com/dhkim-lab/marketsync/pkg/util"
)

// Server is the read-only display surface plus the intent entry points.
// Display components fetch snapshots over REST or subscribe over the
// WebSocket hub; they never mutate market state directly. Intents go
// through the dispatcher, which owns validation and confirmation.
type Server struct {
	sync       *client.Synchronizer
	dispatcher *client.Dispatcher
	journal    *journal.Journal
	countdown  *util.Countdown
	session    params.Session
	pcode      string

	router *mux.Router
	hub    *Hub
	sugar  *zap.SugaredLogger
}

// NewServer wires the display surface over the synchronizer. The
// dispatcher is attached separately because it needs this server's hub
// as its confirmation widget.
func NewServer(sync *client.Synchronizer, j *journal.Journal, cd *util.Countdown, session params.Session, pcode string, sugar *zap.SugaredLogger) *Server {
	s := &Server{
		sync:      sync,
		journal:   j,
		countdown: cd,
		session:   session,
		pcode:     pcode,
		router:    mux.NewRouter(),
		hub:       NewHub(sugar),
		sugar:     sugar,
	}
	s.setupRoutes()
	return s
}

// Hub exposes the WebSocket hub, which doubles as the Confirmer for the
// dispatcher.
func (s *Server) Hub() *Hub { return s.hub }

// AttachDispatcher connects the intent endpoints to a dispatcher.
func (s *Server) AttachDispatcher(d *client.Dispatcher) { s.dispatcher = d }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Read-only snapshots
	api.HandleFunc("/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/trades/{asset}", s.handleGetAssetTrades).Methods("GET")
	api.HandleFunc("/holdings", s.handleGetHoldings).Methods("GET")
	api.HandleFunc("/aggregates", s.handleGetAggregates).Methods("GET")
	api.HandleFunc("/session", s.handleGetSession).Methods("GET")

	// Intent entry points
	api.HandleFunc("/orders", s.handleEnterOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/accept", s.handleAcceptOrder).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	s.sugar.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, BookSnapshot{
		Bids:      s.sync.Bids(),
		Asks:      s.sync.Asks(),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.sync.Trades()
	if trades == nil {
		trades = []market.Trade{}
	}
	respondJSON(w, trades)
}

func (s *Server) handleGetAssetTrades(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]

	trades, err := s.journal.RecentTrades(asset, 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	if trades == nil {
		trades = []market.Trade{}
	}
	respondJSON(w, trades)
}

func (s *Server) handleGetHoldings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.sync.Holdings())
}

func (s *Server) handleGetAggregates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, AggregatesInfo{
		Requested: s.sync.Requested(),
		Offered:   s.sync.Offered(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, SessionInfo{
		Pcode:         s.pcode,
		AssetNames:    s.session.AssetNames(),
		TimeRemaining: s.countdown.Remaining(),
		AllowShort:    s.session.AllowShort,
	})
}

func (s *Server) handleEnterOrder(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		respondError(w, http.StatusServiceUnavailable, "dispatcher not attached", "")
		return
	}

	var req EnterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	// Validation happens in the dispatcher; a bad price is logged there
	// and nothing is sent. The order itself only materializes when the
	// engine confirms it.
	if err := s.dispatcher.SubmitEnter(req.Price, req.Volume, req.IsBid, req.AssetName); err != nil {
		respondError(w, http.StatusBadGateway, "send failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "submitted"})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		respondError(w, http.StatusServiceUnavailable, "dispatcher not attached", "")
		return
	}

	var order market.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	s.dispatcher.SubmitCancel(order)
	respondJSON(w, map[string]string{"status": "confirmation pending"})
}

func (s *Server) handleAcceptOrder(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		respondError(w, http.StatusServiceUnavailable, "dispatcher not attached", "")
		return
	}

	var order market.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	s.dispatcher.SubmitAccept(order)
	respondJSON(w, map[string]string{"status": "confirmation pending"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called from the synchronizer's hooks)
// ==============================

// BroadcastBook pushes the current book and aggregates to subscribed
// display clients.
func (s *Server) BroadcastBook() {
	s.hub.BroadcastToChannel("book", BookUpdate{
		Type:      "book",
		Bids:      s.sync.Bids(),
		Asks:      s.sync.Asks(),
		Requested: s.sync.Requested(),
		Offered:   s.sync.Offered(),
		Timestamp: time.Now().UnixMilli(),
	})
}

// BroadcastTrade pushes one confirmed trade.
func (s *Server) BroadcastTrade(t market.Trade) {
	s.hub.BroadcastToChannel("trades", TradeUpdate{Type: "trade", Trade: t})
}

// BroadcastLog pushes one participant-facing log line.
func (s *Server) BroadcastLog(kind, text string) {
	s.hub.BroadcastToChannel("log", LogUpdate{Type: "log", Kind: kind, Text: text})
}

// BroadcastClock pushes the countdown.
func (s *Server) BroadcastClock(remaining int) {
	s.hub.BroadcastToChannel("clock", ClockUpdate{Type: "clock", Remaining: remaining})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
