package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/franciscosanchezn/tg-game-api/internal/middleware"
	"github.com/franciscosanchezn/tg-game-api/internal/models"
	"github.com/franciscosanchezn/tg-game-api/internal/services"
)

type PlayerController struct {
	players services.PlayerService
}

func NewPlayerController(players services.PlayerService) *PlayerController {
	return &PlayerController{players: players}
}

// Me godoc
// @Summary Current player
// @Description Profile of the player the access token belongs to
// @Tags players
// @Produce json
// @Success 200 {object} models.Player
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/me [get]
func (pc *PlayerController) Me(c *gin.Context) {
	id := c.GetUint(middleware.ContextPlayerID)
	if id == 0 {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "Authentication required"))
		return
	}

	player, err := pc.players.GetByID(c.Request.Context(), id)
	if errors.Is(err, services.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "Player not found"))
		return
	}
	if err != nil {
		internalError(c, err, "Failed to load player")
		return
	}

	c.JSON(http.StatusOK, player)
}
