package http_room

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/partyloop/guessparty/internal/delivery/http/common"
	"github.com/partyloop/guessparty/internal/model"
	usecase_presence "github.com/partyloop/guessparty/internal/usecase/presence"
	usecase_room "github.com/partyloop/guessparty/internal/usecase/room"
)

type Controller struct {
	usecase  *usecase_room.Usecase
	presence *usecase_presence.Usecase
	logger   *slog.Logger
}

func New(usecase *usecase_room.Usecase, presence *usecase_presence.Usecase) *Controller {
	return &Controller{
		usecase:  usecase,
		presence: presence,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.POST("", c.create)
		rooms.POST("/join", c.join)
		rooms.GET("/:code", c.get)
		rooms.DELETE("/:code", c.delete)
		rooms.POST("/:code/cleanup", c.cleanup)
		rooms.POST("/:code/resolve", c.resolve)
		rooms.POST("/:code/heartbeat", c.heartbeat)
	}
}

type CreateRequestDTO struct {
	PlayerName string `json:"playerName"`
	GameType   string `json:"gameType"`
}

type CreateResponseDTO struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
}

// Create allocates a room with the caller as host.
// @Summary Create a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Success 201 {object} CreateResponseDTO
// @Failure 400 {object} http_common.ErrorResponse
// @Router /rooms [post]
func (c *Controller) create(ctx *gin.Context) {
	var req CreateRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request format"})
		return
	}

	code, playerID, err := c.usecase.Create(ctx, req.PlayerName, req.GameType)
	if err != nil {
		switch {
		case errors.Is(err, usecase_room.ErrValidation):
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "playerName must not be blank"})
		case errors.Is(err, usecase_room.ErrRoomsUnavailable):
			ctx.JSON(http.StatusServiceUnavailable, http_common.ErrorResponse{Error: "unavailable"})
		default:
			c.logger.Error("failed to create room", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		}
		return
	}

	ctx.JSON(http.StatusCreated, CreateResponseDTO{
		Code:     code,
		PlayerID: playerID.String(),
	})
}

type JoinRequestDTO struct {
	PlayerName string `json:"playerName"`
	RoomCode   string `json:"roomCode"`
}

type RoomDTO struct {
	Code     string         `json:"code"`
	Host     string         `json:"host"`
	Status   string         `json:"status"`
	GameType string         `json:"gameType"`
	Settings model.Settings `json:"settings"`
}

type JoinResponseDTO struct {
	Success  bool    `json:"success"`
	PlayerID string  `json:"playerId"`
	IsHost   bool    `json:"isHost"`
	Room     RoomDTO `json:"room"`
}

// Join adds the caller to an existing room. Joining twice under the same
// name returns the existing player.
// @Summary Join a room by code
// @Tags Rooms
// @Accept json
// @Produce json
// @Success 200 {object} JoinResponseDTO
// @Failure 404 {object} http_common.ErrorResponse
// @Router /rooms/join [post]
func (c *Controller) join(ctx *gin.Context) {
	var req JoinRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request format"})
		return
	}

	room, player, err := c.usecase.Join(ctx, req.PlayerName, req.RoomCode)
	if err != nil {
		switch {
		case errors.Is(err, usecase_room.ErrValidation):
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "playerName must not be blank"})
		case errors.Is(err, usecase_room.ErrNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Error: "room not found"})
		default:
			c.logger.Error("failed to join room", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, JoinResponseDTO{
		Success:  true,
		PlayerID: player.ID.String(),
		IsHost:   player.IsHost,
		Room: RoomDTO{
			Code:     room.Code,
			Host:     room.HostPlayerID.String(),
			Status:   room.Status,
			GameType: room.GameType,
			Settings: room.Settings,
		},
	})
}

type PlayerDTO struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
	Score    int    `json:"score"`
}

type GetResponseDTO struct {
	Room    RoomDTO     `json:"room"`
	Players []PlayerDTO `json:"players"`
}

// Get reads the room and its roster.
// @Summary Get room state
// @Tags Rooms
// @Produce json
// @Success 200 {object} GetResponseDTO
// @Failure 404 {object} http_common.ErrorResponse
// @Router /rooms/{code} [get]
func (c *Controller) get(ctx *gin.Context) {
	code := ctx.Param("code")

	room, players, err := c.usecase.Get(ctx, code)
	if err != nil {
		if errors.Is(err, usecase_room.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Error: "room not found"})
			return
		}
		c.logger.Error("failed to get room", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		return
	}

	out := make([]PlayerDTO, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerDTO{
			PlayerID: p.ID.String(),
			Name:     p.Name,
			IsHost:   p.IsHost,
			Score:    p.Score,
		})
	}
	ctx.JSON(http.StatusOK, GetResponseDTO{
		Room: RoomDTO{
			Code:     room.Code,
			Host:     room.HostPlayerID.String(),
			Status:   room.Status,
			GameType: room.GameType,
			Settings: room.Settings,
		},
		Players: out,
	})
}

type DeleteRequestDTO struct {
	HostID string `json:"hostId"`
}

// Delete removes the room. Host only.
// @Summary Delete a room
// @Tags Rooms
// @Success 200
// @Failure 403 {object} http_common.ErrorResponse
// @Failure 404 {object} http_common.ErrorResponse
// @Router /rooms/{code} [delete]
func (c *Controller) delete(ctx *gin.Context) {
	code := ctx.Param("code")

	var req DeleteRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request format"})
		return
	}
	hostID, err := uuid.Parse(req.HostID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "hostId must be a valid id"})
		return
	}

	if err := c.usecase.Delete(ctx, code, hostID); err != nil {
		switch {
		case errors.Is(err, usecase_room.ErrNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Error: "room not found"})
		case errors.Is(err, usecase_room.ErrForbidden):
			ctx.JSON(http.StatusForbidden, http_common.ErrorResponse{Error: "only the host may delete the room"})
		default:
			c.logger.Error("failed to delete room", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

type CleanupResponseDTO struct {
	ShouldDelete bool   `json:"shouldDelete"`
	Message      string `json:"message,omitempty"`
	PlayerCount  *int   `json:"playerCount,omitempty"`
	AgeInSeconds *int   `json:"ageInSeconds,omitempty"`
}

// Cleanup reaps the room when it is empty and past the grace period.
// @Summary Reap an idle room
// @Tags Rooms
// @Success 200 {object} CleanupResponseDTO
// @Router /rooms/{code}/cleanup [post]
func (c *Controller) cleanup(ctx *gin.Context) {
	code := ctx.Param("code")

	report, err := c.usecase.Cleanup(ctx, code)
	if err != nil {
		c.logger.Error("failed to clean up room", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		return
	}

	resp := CleanupResponseDTO{
		ShouldDelete: report.ShouldDelete,
		Message:      report.Message,
	}
	if !report.ShouldDelete {
		resp.PlayerCount = &report.PlayerCount
		resp.AgeInSeconds = &report.AgeSeconds
	}
	ctx.JSON(http.StatusOK, resp)
}

type ResolveRequestDTO struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type ResolveResponseDTO struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
	Score    int    `json:"score"`
}

// Resolve finds the caller's existing player row after a reconnect, by
// cached id first and name second. It never creates a row.
func (c *Controller) resolve(ctx *gin.Context) {
	code := ctx.Param("code")

	var req ResolveRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request format"})
		return
	}
	playerID := uuid.Nil
	if req.PlayerID != "" {
		if parsed, err := uuid.Parse(req.PlayerID); err == nil {
			playerID = parsed
		}
	}

	player, err := c.usecase.Resolve(ctx, code, playerID, req.PlayerName)
	if err != nil {
		if errors.Is(err, usecase_room.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Error: "player not found"})
			return
		}
		c.logger.Error("failed to resolve player", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		return
	}

	ctx.JSON(http.StatusOK, ResolveResponseDTO{
		PlayerID: player.ID.String(),
		Name:     player.Name,
		IsHost:   player.IsHost,
		Score:    player.Score,
	})
}

type HeartbeatRequestDTO struct {
	PlayerID string `json:"playerId"`
}

// Heartbeat bumps the caller's last_seen_at. Connected clients do this over
// the websocket automatically; this endpoint covers polling clients.
func (c *Controller) heartbeat(ctx *gin.Context) {
	var req HeartbeatRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request format"})
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "playerId must be a valid id"})
		return
	}

	if err := c.presence.Heartbeat(ctx, playerID); err != nil {
		if errors.Is(err, usecase_presence.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Error: "player not found"})
			return
		}
		c.logger.Error("heartbeat failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
