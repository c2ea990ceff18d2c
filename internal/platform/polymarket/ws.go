package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/bundlebot/internal/domain"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// BookHandler receives every full book snapshot from the market channel.
type BookHandler func(domain.RawBook)

// WSClient streams book snapshots from the CLOB market WebSocket. It keeps
// the connection alive with pings and reconnects with exponential backoff,
// restoring subscriptions after each reconnect.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// writeMu serializes frame writes; the connection allows only one
	// concurrent writer.
	writeMu sync.Mutex

	// Asset IDs to re-subscribe on reconnect.
	assets []string

	handlerMu sync.RWMutex
	handlers  []BookHandler

	done chan struct{}
}

// NewWSClient creates a client for the market channel endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect dials the WebSocket, starts the read and ping loops, and restores
// any prior subscription.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}

	w.conn = conn
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	if len(w.assets) > 0 {
		if err := w.sendCommand(WSCommand{Type: "subscribe", Channel: "book", Assets: w.assets}); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe requests book snapshots for the given asset IDs.
func (w *WSClient) Subscribe(assetIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	if err := w.sendCommand(WSCommand{Type: "subscribe", Channel: "book", Assets: assetIDs}); err != nil {
		return fmt.Errorf("polymarket/ws: subscribe: %w", err)
	}

	w.assets = append(w.assets, assetIDs...)
	return nil
}

// OnBook registers a handler called for every book snapshot.
func (w *WSClient) OnBook(handler BookHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Close shuts the connection down and stops the loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.writeFrame(w.conn, websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return w.conn.Close()
	}
	return nil
}

// sendCommand writes a JSON command. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd WSCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.writeFrame(w.conn, websocket.TextMessage, data)
}

// writeFrame is the single write path to the connection. Commands, pings,
// and the close frame all go through it so writes never interleave.
func (w *WSClient) writeFrame(conn *websocket.Conn, messageType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}

func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			// readLoop restarts via reconnect -> Connect.
			w.reconnect()
			return
		}

		w.handleMessage(message)
	}
}

func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()
			if conn == nil {
				return
			}

			if err := w.writeFrame(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes book events to the registered handlers. The market
// channel delivers frames both singly and in arrays.
func (w *WSClient) handleMessage(raw []byte) {
	frames := []json.RawMessage{json.RawMessage(raw)}
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &frames); err != nil {
			return
		}
	}

	for _, frame := range frames {
		var envelope struct {
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal(frame, &envelope); err != nil {
			continue
		}
		if envelope.EventType != "book" {
			continue
		}

		var book WSBook
		if err := json.Unmarshal(frame, &book); err != nil {
			continue
		}
		rawBook := book.ToRawBook()

		w.handlerMu.RLock()
		handlers := w.handlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(rawBook)
		}
	}
}

// reconnect blocks until a new connection is up or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
