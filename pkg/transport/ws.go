// Package transport maintains the websocket session to the remote
// matching engine: one connection, outbound commands, and an inbound
// stream of confirmation messages in arrival order.
package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dhkim-lab/marketsync/pkg/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second

	baseBackoff = 1 * time.Second
	maxBackoff  = 60 * time.Second
)

// ErrNotConnected is returned by Send while no engine session is up.
var ErrNotConnected = errors.New("not connected to engine")

// Conn is a client connection to the matching engine. It reconnects
// with exponential backoff and delivers inbound messages on a single
// channel so the synchronizer can process them strictly in order.
type Conn struct {
	url   string
	sugar *zap.SugaredLogger

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	inbound chan []byte
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConn prepares a connection to the engine at url. Start must be
// called before messages flow.
func NewConn(url string, sugar *zap.SugaredLogger) *Conn {
	return &Conn{
		url:     url,
		sugar:   sugar,
		inbound: make(chan []byte, 256),
	}
}

// Inbound exposes the engine's confirmation stream. The channel closes
// when the connection shuts down for good.
func (c *Conn) Inbound() <-chan []byte { return c.inbound }

// Start runs the connect/read loop until ctx is canceled or Stop is
// called.
func (c *Conn) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runLoop(ctx)
}

// Stop tears the session down and waits for the read loop to exit.
func (c *Conn) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConn()
	c.wg.Wait()
}

func (c *Conn) runLoop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.inbound)

	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connect(ctx); err != nil {
			delay := backoff(retry)
			retry++
			c.sugar.Warnw("engine_connect_failed", "err", err, "retry", retry, "delay", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		c.readPump(ctx)
		c.closeConn()
	}
}

func (c *Conn) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, http.Header{})
	if err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.pingLoop(ctx, conn)

	c.sugar.Infow("engine_connected", "url", c.url)
	return nil
}

// readPump forwards engine messages to the inbound channel until the
// connection breaks.
func (c *Conn) readPump(ctx context.Context) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.sugar.Warnw("engine_read_error", "err", err)
			}
			return
		}
		select {
		case c.inbound <- message:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Send encodes and writes one outbound command.
func (c *Conn) Send(cmd protocol.Command) error {
	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) closeConn() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

// backoff is baseBackoff * 2^retry capped at maxBackoff.
func backoff(retry int) time.Duration {
	if retry < 0 {
		return baseBackoff
	}
	if retry > 30 {
		return maxBackoff
	}
	d := baseBackoff * time.Duration(1<<retry)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
