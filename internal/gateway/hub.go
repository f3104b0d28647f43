// Package gateway pushes signal events to websocket clients such as chart
// overlays.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"trading-signals/internal/model"

	"github.com/gorilla/websocket"
)

// Channel returns the websocket channel name of a series.
func Channel(symbol, tf string) string {
	return "signal:" + symbol + ":" + tf
}

// Hub manages websocket clients and broadcasts signal events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers for gap detection
	channelSeqs map[string]int64

	// Per-channel replay buffers for gap backfill
	replayBufs map[string]*ReplayBuffer

	// FiredOnly limits broadcasts to bars that emitted a signal.
	FiredOnly bool

	// OnClientCount is called with the new client count on connect and disconnect.
	OnClientCount func(n int)

	Broadcaster *Broadcaster
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// Run broadcasts events from ch until ctx is cancelled or ch is closed.
func (h *Hub) Run(ctx context.Context, ch <-chan model.SignalEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.Publish(ctx, ev)
		}
	}
}

// Publish broadcasts one event.
func (h *Hub) Publish(_ context.Context, ev model.SignalEvent) error {
	if h.FiredOnly && !ev.Emission.Any() {
		return nil
	}
	h.Broadcaster.Broadcast(Channel(ev.Symbol, ev.Timeframe), ev.JSON())
	return nil
}

// HandleConn registers an upgraded connection. Envelopes newer than lastTS
// (RFC3339Nano, optional) are sent first as initial state.
func (h *Hub) HandleConn(conn *websocket.Conn, lastTS string) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
		subs: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}

	client.sendInitialState(lastTS)
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}
}

// GetLatestAll returns the latest payload of every channel.
func (h *Hub) GetLatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// GetReplayRange returns buffered envelopes for a channel in [fromSeq, toSeq].
func (h *Hub) GetReplayRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// GetChannelSeq returns the current sequence number for a channel.
func (h *Hub) GetChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
