package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/franciscosanchezn/tg-game-api/internal/auth"
	"github.com/franciscosanchezn/tg-game-api/internal/coderelay"
	"github.com/franciscosanchezn/tg-game-api/internal/logging"
	"github.com/franciscosanchezn/tg-game-api/internal/models"
	"github.com/franciscosanchezn/tg-game-api/internal/services"
	"github.com/franciscosanchezn/tg-game-api/internal/telegram"
)

var log = logging.New()

// CodeRelay is the bot-relay login flow. *coderelay.Authenticator implements it.
type CodeRelay interface {
	Initiate(ctx context.Context, rawUsername string) error
	Attach(ctx context.Context, rawUsername string, platformID int64) (string, bool, error)
	VerifyCode(ctx context.Context, rawUsername, suppliedCode string) (int64, bool, error)
	Pending(ctx context.Context) (int, error)
	TTL() time.Duration
}

// TokenService issues and renews session tokens. *auth.TokenIssuer implements it.
type TokenService interface {
	Issue(player *models.Player) (auth.TokenPair, error)
	ParseRefresh(token string) (*auth.Claims, error)
}

// InitDataAuthenticator checks Telegram WebApp initData. *telegram.Verifier implements it.
type InitDataAuthenticator interface {
	Authenticate(initData string) (telegram.Identity, error)
}

type AuthController struct {
	players  services.PlayerService
	tokens   TokenService
	relay    CodeRelay
	verifier InitDataAuthenticator
}

// NewAuthController creates the login endpoints. verifier is nil when no bot token is
// configured; Telegram-backed routes then answer 503.
func NewAuthController(players services.PlayerService, tokens TokenService, relay CodeRelay, verifier InitDataAuthenticator) *AuthController {
	return &AuthController{
		players:  players,
		tokens:   tokens,
		relay:    relay,
		verifier: verifier,
	}
}

type telegramLoginRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

type initiateCodeRequest struct {
	Username string `json:"username" binding:"required,tghandle"`
}

type verifyCodeRequest struct {
	Username string `json:"username" binding:"required,tghandle"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LoginResponse is returned by every successful login or refresh
type LoginResponse struct {
	auth.TokenPair
	Player *models.Player `json:"player"`
}

// TelegramLogin godoc
// @Summary Log in from the Telegram WebApp
// @Description Verify Telegram WebApp initData and issue session tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body telegramLoginRequest true "Raw initData string"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 503 {object} models.APIError
// @Router /api/v1/auth/telegram [post]
func (ac *AuthController) TelegramLogin(c *gin.Context) {
	if ac.verifier == nil {
		platformUnavailable(c)
		return
	}

	var req telegramLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, err.Error()))
		return
	}

	identity, err := ac.verifier.Authenticate(req.InitData)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrInvalidInitData, "Telegram init data is invalid or expired"))
		return
	}

	ac.login(c, identity)
}

// InitiateCode godoc
// @Summary Start a bot code login
// @Description Open a login window for a Telegram username. The user then messages the bot to receive a code.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body initiateCodeRequest true "Telegram username"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 503 {object} models.APIError
// @Router /api/v1/auth/code/initiate [post]
func (ac *AuthController) InitiateCode(c *gin.Context) {
	if ac.verifier == nil {
		platformUnavailable(c)
		return
	}

	var req initiateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, "username must be a Telegram username"))
		return
	}

	if err := ac.relay.Initiate(c.Request.Context(), req.Username); err != nil {
		internalError(c, err, "Failed to start login")
		return
	}

	// Same answer whether or not the username exists anywhere.
	c.JSON(http.StatusAccepted, gin.H{
		"status":     "pending",
		"expires_in": int64(ac.relay.TTL().Seconds()),
	})
}

// VerifyCode godoc
// @Summary Finish a bot code login
// @Description Exchange the code relayed by the bot for session tokens. Every failure looks the same.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body verifyCodeRequest true "Username and six digit code"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 429 {object} models.APIError
// @Router /api/v1/auth/code/verify [post]
func (ac *AuthController) VerifyCode(c *gin.Context) {
	if ac.verifier == nil {
		platformUnavailable(c)
		return
	}

	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, "username and a six digit code are required"))
		return
	}

	platformID, ok, err := ac.relay.VerifyCode(c.Request.Context(), req.Username, req.Code)
	if err != nil {
		internalError(c, err, "Failed to verify code")
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrInvalidOrExpiredCode, "Invalid or expired code"))
		return
	}

	ac.login(c, telegram.Identity{
		ID:       platformID,
		Username: coderelay.NormalizeUsername(req.Username),
	})
}

// Refresh godoc
// @Summary Renew session tokens
// @Description Trade a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "Refresh token"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Router /api/v1/auth/refresh [post]
func (ac *AuthController) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, err.Error()))
		return
	}

	claims, err := ac.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrInvalidToken, "Refresh token is invalid or expired"))
		return
	}

	player, err := ac.players.GetByID(c.Request.Context(), claims.PlayerID)
	if errors.Is(err, services.ErrPlayerNotFound) {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrInvalidToken, "Refresh token is invalid or expired"))
		return
	}
	if err != nil {
		internalError(c, err, "Failed to load player")
		return
	}

	ac.respondWithTokens(c, player)
}

// PendingLogins godoc
// @Summary Count pending code logins
// @Description Number of code-relay logins waiting for the bot or for the code
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/admin/pending [get]
func (ac *AuthController) PendingLogins(c *gin.Context) {
	n, err := ac.relay.Pending(c.Request.Context())
	if err != nil {
		internalError(c, err, "Failed to count pending logins")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": n})
}

func (ac *AuthController) login(c *gin.Context, identity telegram.Identity) {
	player, err := ac.players.FindOrCreate(c.Request.Context(), identity)
	if err != nil {
		internalError(c, err, "Failed to resolve player")
		return
	}

	log.WithFields(logrus.Fields{
		"player_id":   player.ID,
		"telegram_id": player.TelegramID,
		"ip":          c.ClientIP(),
	}).Info("Player logged in")

	ac.respondWithTokens(c, player)
}

func (ac *AuthController) respondWithTokens(c *gin.Context, player *models.Player) {
	pair, err := ac.tokens.Issue(player)
	if err != nil {
		internalError(c, err, "Failed to issue tokens")
		return
	}
	c.JSON(http.StatusOK, LoginResponse{TokenPair: pair, Player: player})
}

func platformUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, models.NewAPIError(
		models.ErrPlatformAuthUnavailable, "Telegram login is not configured on this server"))
}

// internalError logs err and answers with a generic 500 that leaks nothing.
func internalError(c *gin.Context, err error, message string) {
	log.WithError(err).WithField("path", c.FullPath()).Error(message)
	c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, message))
}
