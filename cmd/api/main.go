package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"srh_chat_go_backend/cmd/api/config"
	"srh_chat_go_backend/internal/api"
	"srh_chat_go_backend/internal/auth"
	"srh_chat_go_backend/internal/database"
	"srh_chat_go_backend/internal/services"
	"srh_chat_go_backend/internal/utils/broker"
	"srh_chat_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.NewConfig()
	setupLogging(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Info().Msg("No .env file found")
	}

	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")
	}

	database.InitDB()
	sqlDB, err := database.DB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get database handle")
	}

	completion, err := services.NewGeminiCompletionClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Completion, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create completion client")
	}
	defer completion.Close()

	rules, err := services.NewRuleFilter(cfg.FilterRulesPath, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load content filter rules")
	}
	var filter services.ContentFilter = rules
	if cfg.FilterWithAI {
		filter = services.NewAIContentClassifier(rules, completion, cfg.FilterTimeout, log.Logger)
	}

	store := services.NewSessionStoreDB(database.DB, log.Logger)
	monitorBroker := broker.NewBroker(cfg.BrokerBuffer)
	dispatcher := services.NewDefaultAnalysisDispatcher(store, completion, monitorBroker, log.Logger)
	geo := services.NewLocationService(cfg.GeoPrimaryURL, cfg.GeoFallbackURL, cfg.GeoTimeout, log.Logger)
	conversation := services.NewConversationService(store, completion, filter, geo, dispatcher, nil, log.Logger)
	reports := services.NewReportService(store, log.Logger)
	authn := auth.NewAuthenticator(cfg.AdminJWTSecret)
	if !authn.Enabled() {
		log.Warn().Msg("ADMIN_JWT_SECRET is not set, admin endpoints are disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(api.RequestLogger(log.Logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, conversation, store, reports, authn, sqlDB)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range cfg.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	wsHandler := wsocket.NewHandler(conversation, monitorBroker, upgrader, log.Logger)
	r.GET("/ws/chat", func(c *gin.Context) {
		wsHandler.HandleChat(c.Writer, c.Request, c.ClientIP())
	})
	r.GET("/ws/monitor", authn.AdminMiddleware(), func(c *gin.Context) {
		wsHandler.HandleMonitor(c.Writer, c.Request)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	dispatcher.Wait()
	log.Info().Msg("Background analyses drained")
}
