package dataprovider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/aristath/systrader/internal/platform"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wireTick is the JSON frame a live feed publishes per tick. Vendor-specific
// framing (auth handshakes, heartbeats, multiplexed channels) is adapter
// work outside this package's scope; this is the minimal shape the rest of
// this client assumes once a connection is authenticated and subscribed.
type wireTick struct {
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// WebSocket is a StreamingProvider that subscribes to a vendor's live bar
// feed over a websocket connection and dispatches each decoded tick to the
// registered handler as a platform.BarRow on Timeframe1Min.
type WebSocket struct {
	url string
	log zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocket returns a StreamingProvider dialing endpoint lazily on the
// first Subscribe call.
func NewWebSocket(endpoint string, log zerolog.Logger) (*WebSocket, error) {
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("dataprovider: invalid websocket url: %w", err)
	}
	return &WebSocket{url: endpoint, log: log.With().Str("component", "dataprovider.websocket").Logger()}, nil
}

// Subscribe dials the feed, sends a subscribe frame naming tickers, and
// reads ticks until the connection closes, invoking handler per bar. It
// blocks for the life of the connection; callers run it in its own
// goroutine.
func (w *WebSocket) Subscribe(tickers []string, handler platform.BarHandler) error {
	conn, _, err := websocket.DefaultDialer.Dial(w.url, nil)
	if err != nil {
		return fmt.Errorf("dataprovider: dial: %w", err)
	}
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	defer conn.Close()

	if err := conn.WriteJSON(struct {
		Action  string   `json:"action"`
		Tickers []string `json:"tickers"`
	}{Action: "subscribe", Tickers: tickers}); err != nil {
		return fmt.Errorf("dataprovider: subscribe: %w", err)
	}

	for {
		var tick wireTick
		if err := conn.ReadJSON(&tick); err != nil {
			return fmt.Errorf("dataprovider: read: %w", err)
		}
		handler(platform.BarRow{
			Ticker:    tick.Ticker,
			Timestamp: tick.Timestamp,
			Timeframe: platform.Timeframe1Min,
			Open:      tick.Open,
			High:      tick.High,
			Low:       tick.Low,
			Close:     tick.Close,
			Volume:    tick.Volume,
		})
	}
}

// Close terminates the active connection, if any, unblocking Subscribe.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

var _ platform.StreamingProvider = (*WebSocket)(nil)
