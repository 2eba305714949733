package ws_room

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	infra_postgres_feed "github.com/partyloop/guessparty/internal/infra/postgres/feed"
	infra_redis_pubsub "github.com/partyloop/guessparty/internal/infra/redis/pubsub"
)

// ScreenPresence is the "who is on this screen" marker set on the ephemeral
// tier, satisfied by the Redis presence driver.
type ScreenPresence interface {
	MarkOnline(roomCode string, playerID string, ttl time.Duration) error
	MarkOffline(roomCode string, playerID string) error
}

const (
	EventRoomChanged    = "ROOM_CHANGED"
	EventPlayerChanged  = "PLAYER_CHANGED"
	EventSessionChanged = "SESSION_CHANGED"
	EventEphemeral      = "EPHEMERAL"
	EventError          = "ERROR"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type roomEvent struct {
	roomCode string
	event    Event
}

// Hub fans both tiers out to connected clients: durable store changes arrive
// through HandleChange, ephemeral traffic through one Redis subscription per
// room. Clients never talk to either source directly.
type Hub struct {
	pubsub  *infra_redis_pubsub.Driver
	screens ScreenPresence
	logger  *slog.Logger

	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	bridges    map[string]*bridge
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomEvent
	mu         sync.RWMutex
}

func NewHub(pubsub *infra_redis_pubsub.Driver, screens ScreenPresence) *Hub {
	return &Hub{
		pubsub:     pubsub,
		screens:    screens,
		logger:     slog.Default(),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		bridges:    make(map[string]*bridge),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomEvent),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case roomEvent := <-h.broadcast:
			h.broadcastToRoom(roomEvent.roomCode, roomEvent.event)
		}
	}
}

// HandleChange receives every row-level change from the durable feed and
// forwards it to the room it belongs to. Delivery is at-least-once upstream,
// so clients treat these as state snapshots, not increments.
func (h *Hub) HandleChange(change infra_postgres_feed.Change) {
	var eventType string
	switch change.Table {
	case "rooms":
		eventType = EventRoomChanged
	case "players":
		eventType = EventPlayerChanged
	case "game_sessions":
		eventType = EventSessionChanged
	default:
		h.logger.Warn("change for unknown table dropped", "table", change.Table)
		return
	}

	h.broadcastToRoom(change.RoomCode, Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"op":  change.Op,
			"row": change.Row,
		},
	})
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if _, exists := h.rooms[client.roomCode]; !exists {
		h.rooms[client.roomCode] = make(map[*Client]bool)
		h.bridges[client.roomCode] = h.openBridge(client.roomCode, client.gameType)
	}
	h.rooms[client.roomCode][client] = true

	if err := h.screens.MarkOnline(client.roomCode, client.playerID, screenTTL); err != nil {
		h.logger.Error("failed to mark player online", "player_id", client.playerID, "error", err)
	}

	h.logger.Info("client registered",
		"player_id", client.playerID,
		"room", client.roomCode)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	client.cancel()

	if roomClients, exists := h.rooms[client.roomCode]; exists {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, client.roomCode)
			if b := h.bridges[client.roomCode]; b != nil {
				b.close()
			}
			delete(h.bridges, client.roomCode)
		}
	}

	if err := h.screens.MarkOffline(client.roomCode, client.playerID); err != nil {
		h.logger.Error("failed to mark player offline", "player_id", client.playerID, "error", err)
	}

	h.logger.Info("client unregistered",
		"player_id", client.playerID,
		"room", client.roomCode)
}

// broadcastToRoom fans the event out under the read lock; a client whose
// buffer is full is evicted afterwards through the unregister path, so its
// send channel is closed exactly once and only under the write lock. A send
// can therefore never race a close, and a later unregister from the client's
// own read pump is a no-op.
func (h *Hub) broadcastToRoom(roomCode string, event Event) {
	h.mu.RLock()
	var stalled []*Client
	for client := range h.rooms[roomCode] {
		select {
		case client.send <- event:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.logger.Warn("evicting client that cannot keep up",
			"player_id", client.playerID,
			"room", client.roomCode)
		h.handleUnregister(client)
	}
}

// bridge pumps one room's Redis ephemeral channel into the hub for as long
// as the room has at least one connected client.
type bridge struct {
	sub *infra_redis_pubsub.Subscription
}

func (h *Hub) openBridge(roomCode string, gameType string) *bridge {
	sub := h.pubsub.Subscribe(roomCode, gameType)
	go func() {
		for payload := range sub.Messages() {
			h.broadcast <- roomEvent{
				roomCode: roomCode,
				event: Event{
					Type:    EventEphemeral,
					Payload: json.RawMessage(payload),
				},
			}
		}
	}()
	return &bridge{sub: sub}
}

func (b *bridge) close() {
	_ = b.sub.Close()
}

// PublishEphemeral puts a client message on the fire-and-forget tier. No
// persistence, no replay: subscribers not connected right now never see it.
func (h *Hub) PublishEphemeral(roomCode string, gameType string, payload []byte) error {
	return h.pubsub.Publish(roomCode, gameType, payload)
}
