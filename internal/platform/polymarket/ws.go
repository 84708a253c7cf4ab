package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

const (
	// writeWait bounds each write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long the connection may go without a pong before the
	// read loop gives up; pings go out at pingPeriod, which must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Reconnect backoff bounds.
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// LastTradeHandler receives every last-trade-price frame.
type LastTradeHandler func(LastTrade)

// WSClient consumes the CLOB market WebSocket channel. It tracks the
// subscribed asset set so subscriptions survive a reconnect, keeps the
// connection alive with pings, and reconnects with capped backoff when the
// read loop fails.
type WSClient struct {
	wsURL string

	mu       sync.RWMutex
	conn     *websocket.Conn
	closed   bool
	assets   map[string]struct{} // restored on reconnect
	handlers []LastTradeHandler

	done chan struct{}
}

// NewWSClient creates a client for the given endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		assets: make(map[string]struct{}),
		done:   make(chan struct{}),
	}
}

// OnLastTrade registers a handler for last-trade-price frames. Register
// before Connect; handlers run on the read-loop goroutine.
func (w *WSClient) OnLastTrade(handler LastTradeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Connect dials the endpoint, starts the read and ping loops, and replays
// the current subscription set.
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

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	w.conn = conn

	go w.readLoop(conn)
	go w.pingLoop(conn)

	if len(w.assets) > 0 {
		ids := make([]string, 0, len(w.assets))
		for id := range w.assets {
			ids = append(ids, id)
		}
		if err := w.send(conn, WSCommand{Type: "subscribe", Channel: "market", Assets: ids}); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscriptions: %w", err)
		}
	}
	return nil
}

// SubscribeAssets adds market-channel subscriptions for the given outcome
// token IDs.
func (w *WSClient) SubscribeAssets(ctx context.Context, assetIDs []string) error {
	return w.updateSubscriptions("subscribe", assetIDs)
}

// UnsubscribeAssets drops market-channel subscriptions for the given token
// IDs.
func (w *WSClient) UnsubscribeAssets(ctx context.Context, assetIDs []string) error {
	return w.updateSubscriptions("unsubscribe", assetIDs)
}

func (w *WSClient) updateSubscriptions(cmdType string, assetIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	cmd := WSCommand{Type: cmdType, Channel: "market", Assets: assetIDs}
	if err := w.send(w.conn, cmd); err != nil {
		return fmt.Errorf("polymarket/ws: %s: %w", cmdType, err)
	}

	for _, id := range assetIDs {
		if cmdType == "subscribe" {
			w.assets[id] = struct{}{}
		} else {
			delete(w.assets, id)
		}
	}
	return nil
}

// Close sends a close frame and stops the background loops. Safe to call
// more than once.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// send writes cmd as a text frame. Caller holds w.mu.
func (w *WSClient) send(conn *websocket.Conn, cmd WSCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames until the connection fails, then hands off to
// reconnect. A fresh readLoop starts from the reconnect's Connect.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			default:
				go w.reconnect()
			}
			return
		}
		w.dispatch(frame)
	}
}

// pingLoop keeps the connection alive; it exits when a ping fails, leaving
// the read loop to notice the dead connection.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes last-trade-price frames to the handlers. Every other frame
// type, and anything unparseable, is dropped.
func (w *WSClient) dispatch(frame []byte) {
	var envelope struct {
		MsgType string `json:"msg_type"`
		Event   string `json:"event_type"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return
	}
	kind := envelope.MsgType
	if kind == "" {
		kind = envelope.Event
	}
	if kind != "last_trade_price" {
		return
	}

	var pm PriceMessage
	if err := json.Unmarshal(frame, &pm); err != nil {
		return
	}
	trade := PriceToLastTrade(&pm)

	w.mu.RLock()
	handlers := w.handlers
	w.mu.RUnlock()
	for _, h := range handlers {
		h(trade)
	}
}

// reconnect redials with capped exponential backoff until it succeeds or the
// client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay
	for {
		select {
		case <-w.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay = min(delay*2, maxReconnectDelay)
	}
}
