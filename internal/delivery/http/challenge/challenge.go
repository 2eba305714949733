package http_challenge

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/partyloop/guessparty/internal/challenge"
	http_common "github.com/partyloop/guessparty/internal/delivery/http/common"
	"github.com/partyloop/guessparty/internal/model"
)

const maxCount = 50

type Controller struct {
	registry *challenge.Registry
	logger   *slog.Logger
}

func New(registry *challenge.Registry) *Controller {
	return &Controller{
		registry: registry,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/challenges/:game_type", c.list)
}

type ChallengeDTO struct {
	GameType string         `json:"gameType"`
	Prompt   string         `json:"prompt"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// list returns a preview batch of challenges for a game type. Accepted
// answers are stripped: this endpoint exists for lobby previews, not play.
// @Summary Preview challenges for a game type
// @Tags Challenges
// @Produce json
// @Param game_type path string true "Game type"
// @Param count query int false "Batch size, capped at 50"
// @Success 200 {array} ChallengeDTO
// @Failure 404 {object} http_common.ErrorResponse
// @Router /challenges/{game_type} [get]
func (c *Controller) list(ctx *gin.Context) {
	gameType := model.GameType(ctx.Param("game_type"))

	count := 5
	if raw := ctx.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Error: "count must be a positive integer"})
			return
		}
		count = parsed
	}
	if count > maxCount {
		count = maxCount
	}

	challenges, err := c.registry.Fetch(ctx, gameType, count)
	if err != nil {
		if errors.Is(err, challenge.ErrUnknownGameType) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{Error: "unknown game type"})
			return
		}
		c.logger.Error("failed to fetch challenges",
			slog.String("game_type", string(gameType)),
			slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{Error: "internal error"})
		return
	}

	out := make([]ChallengeDTO, 0, len(challenges))
	for _, ch := range challenges {
		out = append(out, ChallengeDTO{
			GameType: string(ch.GameType),
			Prompt:   ch.Prompt,
			Meta:     ch.Meta,
		})
	}
	ctx.JSON(http.StatusOK, out)
}
