package http_session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	http_common "github.com/partyloop/guessparty/internal/delivery/http/common"
	"github.com/partyloop/guessparty/internal/model"
	usecase_session "github.com/partyloop/guessparty/internal/usecase/session"
)

type Controller struct {
	usecase *usecase_session.Usecase
	logger  *slog.Logger
}

func New(usecase *usecase_session.Usecase) *Controller {
	return &Controller{
		usecase: usecase,
		logger:  slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	session := router.Group("/rooms/:code/session")
	{
		session.GET("", c.get)
		session.POST("/start", c.start)
		session.POST("/answers", c.submit)
		session.POST("/end", c.endRound)
		session.POST("/next", c.nextRound)
	}
}

type SessionDTO struct {
	Status       model.SessionStatus `json:"status"`
	CurrentRound int                 `json:"currentRound"`
	TotalRounds  int                 `json:"totalRounds"`
	RoundData    model.RoundData     `json:"roundData"`
	AnswerCount  int                 `json:"answerCount"`
	RemainingMs  int64               `json:"remainingMs"`
}

func toDTO(session model.GameSession, remainingMs int64) SessionDTO {
	// The queue never leaves the server in full: it holds the answers to
	// rounds nobody has played yet.
	session.RoundData.Queue = nil
	return SessionDTO{
		Status:       session.Status,
		CurrentRound: session.CurrentRound,
		TotalRounds:  session.TotalRounds,
		RoundData:    session.RoundData,
		AnswerCount:  len(session.Answers),
		RemainingMs:  remainingMs,
	}
}

func (c *Controller) get(ctx *gin.Context) {
	code := ctx.Param("code")

	session, remaining, err := c.usecase.Get(ctx, code)
	if err != nil {
		c.respondError(ctx, "get session", err)
		return
	}

	ctx.JSON(http.StatusOK, toDTO(session, remaining.Milliseconds()))
}

type HostActionDTO struct {
	HostID string `json:"hostId"`
}

func (c *Controller) hostID(ctx *gin.Context) (uuid.UUID, bool) {
	var req HostActionDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request format"})
		return uuid.Nil, false
	}
	hostID, err := uuid.Parse(req.HostID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "hostId must be a valid id"})
		return uuid.Nil, false
	}
	return hostID, true
}

// start moves the session from waiting into the first active round.
// @Summary Start the game
// @Tags Session
// @Accept json
// @Produce json
// @Success 200 {object} SessionDTO
// @Failure 403 {object} http_common.ErrorResponse
// @Failure 409 {object} http_common.ErrorResponse
// @Router /rooms/{code}/session/start [post]
func (c *Controller) start(ctx *gin.Context) {
	code := ctx.Param("code")
	hostID, ok := c.hostID(ctx)
	if !ok {
		return
	}

	session, err := c.usecase.Start(ctx, code, hostID)
	if err != nil {
		c.respondError(ctx, "start session", err)
		return
	}
	ctx.JSON(http.StatusOK, toDTO(session, session.RoundData.Remaining(time.Now()).Milliseconds()))
}

type SubmitRequestDTO struct {
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer"`
}

type SubmitResponseDTO struct {
	Success     bool `json:"success"`
	AllAnswered bool `json:"allAnswered"`
}

func (c *Controller) submit(ctx *gin.Context) {
	code := ctx.Param("code")

	var req SubmitRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request format"})
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "playerId must be a valid id"})
		return
	}

	allAnswered, err := c.usecase.Submit(ctx, code, playerID, req.Answer)
	if err != nil {
		c.respondError(ctx, "submit answer", err)
		return
	}
	ctx.JSON(http.StatusOK, SubmitResponseDTO{Success: true, AllAnswered: allAnswered})
}

func (c *Controller) endRound(ctx *gin.Context) {
	code := ctx.Param("code")
	hostID, ok := c.hostID(ctx)
	if !ok {
		return
	}

	session, err := c.usecase.EndRound(ctx, code, hostID)
	if err != nil {
		c.respondError(ctx, "end round", err)
		return
	}
	ctx.JSON(http.StatusOK, toDTO(session, 0))
}

func (c *Controller) nextRound(ctx *gin.Context) {
	code := ctx.Param("code")
	hostID, ok := c.hostID(ctx)
	if !ok {
		return
	}

	session, err := c.usecase.NextRound(ctx, code, hostID)
	if err != nil {
		c.respondError(ctx, "advance round", err)
		return
	}
	ctx.JSON(http.StatusOK, toDTO(session, session.RoundData.Remaining(time.Now()).Milliseconds()))
}

func (c *Controller) respondError(ctx *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, usecase_session.ErrValidation):
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "invalid request"})
	case errors.Is(err, usecase_session.ErrNotFound):
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Error: "not found"})
	case errors.Is(err, usecase_session.ErrForbidden):
		ctx.JSON(http.StatusForbidden, http_common.ErrorResponse{Error: "forbidden"})
	case errors.Is(err, usecase_session.ErrBadTransition):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Error: "transition not allowed"})
	case errors.Is(err, usecase_session.ErrRoundStillActive):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Error: "round still active"})
	case errors.Is(err, usecase_session.ErrVersionConflict):
		ctx.JSON(http.StatusConflict, http_common.ErrorResponse{Error: "session modified concurrently, re-read and retry"})
	default:
		c.logger.Error("failed to "+action, slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
	}
}
