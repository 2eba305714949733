package ws_room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	usecase_presence "github.com/partyloop/guessparty/internal/usecase/presence"
	usecase_room "github.com/partyloop/guessparty/internal/usecase/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// How long the "on this screen" marker outlives its last refresh.
	screenTTL = 2 * pongWait

	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection bound to a (room, player) pair.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan Event
	playerID string
	roomCode string
	gameType string
	cancel   context.CancelFunc
}

type Controller struct {
	hub      *Hub
	rooms    *usecase_room.Usecase
	presence *usecase_presence.Usecase
	logger   *slog.Logger
}

func NewController(hub *Hub, rooms *usecase_room.Usecase, presence *usecase_presence.Usecase) *Controller {
	return &Controller{
		hub:      hub,
		rooms:    rooms,
		presence: presence,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/rooms/:code/ws", c.connect)
}

// connect upgrades the request and attaches the caller to the room's event
// stream. The caller must already be a player in the room.
func (c *Controller) connect(ctx *gin.Context) {
	code := ctx.Param("code")
	playerID, err := uuid.Parse(ctx.Query("playerId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "playerId must be a valid id"})
		return
	}

	room, players, err := c.rooms.Get(ctx.Request.Context(), code)
	if err != nil {
		if errors.Is(err, usecase_room.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.logger.Error("failed to load room for ws connect", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var member bool
	for _, p := range players {
		if p.ID == playerID {
			member = true
			break
		}
	}
	if !member {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "not a player in this room"})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("ws upgrade failed", "error", err)
		return
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:      c.hub,
		conn:     conn,
		send:     make(chan Event, 16),
		playerID: playerID.String(),
		roomCode: room.Code,
		gameType: room.GameType,
		cancel:   cancel,
	}
	c.hub.register <- client

	// Each connection carries its own presence duties: the heartbeat plus
	// either the host's stale sweep or the failover watch.
	go usecase_presence.NewMonitor(c.presence, room.Code, playerID).Run(monitorCtx)

	go client.writePump()
	go client.readPump()
}

// readPump relays every inbound message to the room's ephemeral channel.
// Clients talk to each other only through Redis, never peer to peer, so a
// message reaches players connected to any instance.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !json.Valid(raw) {
			c.send <- Event{Type: EventError, Payload: "message must be JSON"}
			continue
		}
		if err := c.hub.PublishEphemeral(c.roomCode, c.gameType, raw); err != nil {
			c.hub.logger.Error("ephemeral publish failed", "room", c.roomCode, "error", err)
		}
	}
}

func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			// The ping doubles as the screen-presence refresh.
			if err := c.hub.screens.MarkOnline(c.roomCode, c.playerID, screenTTL); err != nil {
				c.hub.logger.Error("failed to refresh screen presence", "player_id", c.playerID, "error", err)
			}
		}
	}
}
