package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/tg-game-api/docs" // Import generated docs
	"github.com/franciscosanchezn/tg-game-api/internal/auth"
	"github.com/franciscosanchezn/tg-game-api/internal/coderelay"
	"github.com/franciscosanchezn/tg-game-api/internal/config"
	"github.com/franciscosanchezn/tg-game-api/internal/controllers"
	"github.com/franciscosanchezn/tg-game-api/internal/database"
	"github.com/franciscosanchezn/tg-game-api/internal/logging"
	"github.com/franciscosanchezn/tg-game-api/internal/middleware"
	"github.com/franciscosanchezn/tg-game-api/internal/models"
	"github.com/franciscosanchezn/tg-game-api/internal/services"
	"github.com/franciscosanchezn/tg-game-api/internal/telegram"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/swaggo/files"
	"github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Per-IP budgets for the unauthenticated login endpoints.
const (
	initiateEvery = 12 * time.Second
	initiateBurst = 5
	verifyEvery   = 6 * time.Second
	verifyBurst   = 10
	limiterIdle   = 10 * time.Minute
)

// application holds everything the routes need
type application struct {
	config *config.Config
	db     *gorm.DB

	store coderelay.Store
	relay *coderelay.Authenticator

	authController   *controllers.AuthController
	botController    *controllers.BotController
	playerController *controllers.PlayerController
	tokens           *auth.TokenIssuer

	initiateLimiter *middleware.RateLimiter
	verifyLimiter   *middleware.RateLimiter

	closers []func() error
}

// @title Telegram Game API
// @version 1.0
// @description Player authentication for a Telegram game: WebApp initData login and bot-relayed login codes.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration := loadConfig()

	app, err := newApplication(configuration)
	checkPanicErr(err)
	defer app.Close()

	router, err := setupRouter(app)
	checkPanicErr(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go app.initiateLimiter.Run(time.Minute, done)
	go app.verifyLimiter.Run(time.Minute, done)
	defer close(done)

	server := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", configuration.Host, configuration.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter. Package loggers were
// configured before .env was loaded, so their level is re-read here too.
func setUpLogger() {
	logging.Configure(log.StandardLogger())
	level := logging.Reload()
	log.WithField("level", level.String()).Debug("Logger configured")
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// newApplication opens the database and pending-login store and builds the controllers
func newApplication(conf *config.Config) (*application, error) {
	app := &application{config: conf}

	db, err := database.Open(conf.Database)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.closers = append(app.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if err := app.setupPendingStore(); err != nil {
		app.Close()
		return nil, err
	}
	app.relay = coderelay.NewAuthenticator(app.store,
		coderelay.WithTTL(conf.LoginCodeTTL),
		coderelay.WithMaxAttempts(conf.LoginCodeMaxAttempts),
	)

	tokens, err := auth.NewTokenIssuer(conf.JWTAccessSecret, conf.JWTRefreshSecret, conf.AccessTokenTTL, conf.RefreshTokenTTL)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.tokens = tokens

	// A nil *Verifier must not end up inside the interface.
	var initData controllers.InitDataAuthenticator
	if verifier, err := telegram.NewVerifier(conf.TelegramBotToken, conf.InitDataMaxAge); err != nil {
		log.WithError(err).Warn("TELEGRAM_BOT_TOKEN not set, Telegram logins are disabled")
	} else {
		initData = verifier
	}

	players := services.NewPlayerService(db, conf.AdminTelegramIDs)
	app.authController = controllers.NewAuthController(players, tokens, app.relay, initData)
	app.botController = controllers.NewBotController(app.relay, conf.TelegramWebhookSecret)
	app.playerController = controllers.NewPlayerController(players)

	app.initiateLimiter = middleware.NewRateLimiter(rate.Every(initiateEvery), initiateBurst, limiterIdle)
	app.verifyLimiter = middleware.NewRateLimiter(rate.Every(verifyEvery), verifyBurst, limiterIdle)

	if err := controllers.RegisterValidators(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// setupPendingStore picks the in-process or the Redis pending-login store
func (app *application) setupPendingStore() error {
	switch app.config.PendingStore {
	case config.PendingStoreRedis:
		client, err := database.OpenRedis(app.config.RedisAddr, app.config.RedisPassword, app.config.RedisDB)
		if err != nil {
			return err
		}
		app.store = coderelay.NewRedisStore(client)
		app.closers = append(app.closers, client.Close)
	default:
		store := coderelay.NewMemoryStore()
		app.store = store
		app.closers = append(app.closers, store.Close)
	}
	log.WithField("pending_store", app.config.PendingStore).Info("Pending login store ready")
	return nil
}

// Close releases the database and store in reverse order of opening
func (app *application) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			log.WithError(err).Warn("Close failed")
		}
	}
	app.closers = nil
}

// setupRouter initializes the Gin router and sets up the routes
// Only the configured proxies may set X-Forwarded-For; by default ClientIP is the
// socket address, so the per-IP limiters cannot be dodged with a forged header.
func setupRouter(app *application) (*gin.Engine, error) {
	// Initialize Gin router
	router := gin.Default()
	if err := router.SetTrustedProxies(app.config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	// Define routes
	setupRoutes(router, app)

	return router, nil
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine, app *application) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	// Telegram delivers bot updates here
	router.POST("/telegram/webhook", app.botController.Webhook)

	v1 := router.Group("/api/v1")
	{
		// Authentication routes
		authApi := v1.Group("/auth")
		{
			authApi.POST("/telegram", app.authController.TelegramLogin)
			authApi.POST("/code/initiate", app.initiateLimiter.Limit(), app.authController.InitiateCode)
			authApi.POST("/code/verify", app.verifyLimiter.Limit(), app.authController.VerifyCode)
			authApi.POST("/refresh", app.authController.Refresh)
		}

		// Protected routes (requires an access token)
		protectedApi := v1.Group("/protected")
		protectedApi.Use(middleware.BearerAuth(app.tokens))
		{
			protectedApi.GET("/me", app.playerController.Me)

			adminApi := protectedApi.Group("/admin")
			adminApi.Use(middleware.RequireRole(models.RoleAdmin))
			{
				adminApi.GET("/pending", app.authController.PendingLogins)
			}
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "tg-game-api",
	})
}
