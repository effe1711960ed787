package controllers

import (
	"crypto/hmac"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

// WebhookSecretHeader carries the secret_token registered with setWebhook.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const helpText = "Send /login after requesting a code in the game. I will reply with your six digit login code."

type BotController struct {
	relay  CodeRelay
	secret string
}

func NewBotController(relay CodeRelay, webhookSecret string) *BotController {
	return &BotController{relay: relay, secret: webhookSecret}
}

// Webhook godoc
// @Summary Telegram bot webhook
// @Description Receives bot updates. /start, /login and /code hand the sender a login code for their pending login.
// @Tags bot
// @Accept json
// @Produce application/x-www-form-urlencoded
// @Param X-Telegram-Bot-Api-Secret-Token header string true "Webhook secret"
// @Success 200
// @Failure 401 {object} models.APIError
// @Router /telegram/webhook [post]
func (bc *BotController) Webhook(c *gin.Context) {
	got := c.GetHeader(WebhookSecretHeader)
	if bc.secret == "" || !hmac.Equal([]byte(got), []byte(bc.secret)) {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "Invalid webhook secret"))
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Malformed update"))
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		// Edits, callbacks, channel posts. Acknowledge so Telegram stops retrying.
		c.Status(http.StatusOK)
		return
	}

	var text string
	switch msg.Command() {
	case "start", "login", "code":
		text = bc.loginCode(c, msg)
	default:
		text = helpText
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if err := tgbotapi.WriteToHTTPResponse(c.Writer, reply); err != nil {
		log.WithError(err).Error("Failed to write bot reply")
	}
}

// loginCode attaches a code to the sender's pending login and returns the chat reply.
// The username is taken from the Telegram sender, never from the message text.
func (bc *BotController) loginCode(c *gin.Context, msg *tgbotapi.Message) string {
	if !msg.Chat.IsPrivate() {
		return "Login codes are only sent in a private chat. Message me directly."
	}
	if msg.From.UserName == "" {
		return "Your Telegram account has no username. Set one in Telegram settings, then request a code again."
	}

	code, pending, err := bc.relay.Attach(c.Request.Context(), msg.From.UserName, msg.From.ID)
	if err != nil {
		log.WithError(err).WithField("telegram_id", msg.From.ID).Error("Failed to attach login code")
		return "Something went wrong. Please try again in a moment."
	}
	if !pending {
		return fmt.Sprintf("No login is waiting for @%s. Request a code in the game first, then send /login.", msg.From.UserName)
	}

	return fmt.Sprintf("Your login code is %s\nIt expires within %d minutes. Never share it.",
		code, int(bc.relay.TTL().Minutes()))
}
