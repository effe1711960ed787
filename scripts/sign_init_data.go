package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/franciscosanchezn/tg-game-api/internal/config"
	"github.com/franciscosanchezn/tg-game-api/internal/telegram"
)

// Prints a signed WebApp initData string for local testing of POST /api/v1/auth/telegram.
// The bot token comes from TELEGRAM_BOT_TOKEN (or .env) unless -token is given.
func main() {
	_ = godotenv.Load()

	token := flag.String("token", config.GetEnvWithDefault("TELEGRAM_BOT_TOKEN", ""), "Bot token used as the signing secret")
	id := flag.Int64("id", 100000001, "Telegram user id")
	username := flag.String("username", "dev_player", "Telegram username")
	firstName := flag.String("first-name", "Dev", "First name")
	age := flag.Duration("age", 0, "Backdate auth_date by this much")
	flag.Parse()

	if *token == "" {
		log.Fatal("No bot token: set TELEGRAM_BOT_TOKEN or pass -token")
	}

	user, err := json.Marshal(telegram.Identity{
		ID:        *id,
		Username:  *username,
		FirstName: *firstName,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to encode user")
	}

	values := url.Values{}
	values.Set("query_id", fmt.Sprintf("DEV%d", time.Now().UnixNano()))
	values.Set("user", string(user))
	values.Set("auth_date", strconv.FormatInt(time.Now().Add(-*age).Unix(), 10))
	values.Set("hash", telegram.SignInitData(values, *token))

	fmt.Println(values.Encode())
}
