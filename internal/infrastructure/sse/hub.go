// Package sse fans match bus events out to Server-Sent Events clients.
package sse

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/execution-hub/matchflow/internal/eventbus"
)

// Hub manages SSE clients grouped by match.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	attached map[uuid.UUID]attachment
	logger   zerolog.Logger
}

type attachment struct {
	bus *eventbus.Bus
	sub eventbus.Subscription
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		attached: make(map[uuid.UUID]attachment),
		logger:   logger.With().Str("component", "sse").Logger(),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		close(c.MessageChan)
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToMatch delivers msg to every client of the match. Clients with a
// full buffer miss the message.
func (h *Hub) BroadcastToMatch(matchID uuid.UUID, msg *Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, c := range h.clients {
		if c.MatchID != matchID {
			continue
		}
		if trySend(c, msg) {
			sent++
		} else {
			h.logger.Warn().Str("client_id", c.ClientID).Str("event", msg.Event).Msg("client buffer full, dropping message")
		}
	}
	return sent
}

// Publish encodes detail and broadcasts it to the match.
func (h *Hub) Publish(matchID uuid.UUID, event string, detail any) {
	msg, err := NewMessage(event, detail)
	if err != nil {
		h.logger.Warn().Err(err).Str("match_id", matchID.String()).Str("event", event).Msg("failed to encode stream message")
		return
	}
	h.BroadcastToMatch(matchID, msg)
}

// Attach streams every event of bus to the match's clients. Attaching a
// match twice keeps the first subscription.
func (h *Hub) Attach(matchID uuid.UUID, bus *eventbus.Bus) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.attached[matchID]; ok {
		return false
	}
	sub := bus.On(eventbus.Wildcard, func(e eventbus.Event) {
		h.Publish(matchID, e.Name, e.Detail)
	})
	if !sub.Valid() {
		return false
	}
	h.attached[matchID] = attachment{bus: bus, sub: sub}
	return true
}

// Detach stops streaming the match bus and closes the match's clients.
func (h *Hub) Detach(matchID uuid.UUID) {
	h.mu.Lock()
	a, ok := h.attached[matchID]
	delete(h.attached, matchID)
	for id, c := range h.clients {
		if c.MatchID == matchID {
			close(c.MessageChan)
			delete(h.clients, id)
		}
	}
	h.mu.Unlock()
	if ok {
		a.bus.Off(a.sub)
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	attached := h.attached
	h.attached = make(map[uuid.UUID]attachment)
	for id, c := range h.clients {
		close(c.MessageChan)
		delete(h.clients, id)
	}
	h.mu.Unlock()
	for _, a := range attached {
		a.bus.Off(a.sub)
	}
}

func trySend(c *Client, msg *Message) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
