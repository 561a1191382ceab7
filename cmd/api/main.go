package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medimeet/consult-api/internal/config"
	"github.com/medimeet/consult-api/internal/handler"
	bookingHandler "github.com/medimeet/consult-api/internal/handler/booking"
	heartbeatHandler "github.com/medimeet/consult-api/internal/handler/heartbeat"
	meetingHandler "github.com/medimeet/consult-api/internal/handler/meeting"
	prometheusHandler "github.com/medimeet/consult-api/internal/handler/prometheus"
	slotHandler "github.com/medimeet/consult-api/internal/handler/slot"
	"github.com/medimeet/consult-api/internal/middleware"
	"github.com/medimeet/consult-api/internal/repository/postgres"
	"github.com/medimeet/consult-api/internal/router"
	bookingService "github.com/medimeet/consult-api/internal/service/booking"
	meetingService "github.com/medimeet/consult-api/internal/service/meeting"
	slotService "github.com/medimeet/consult-api/internal/service/slot"
	"github.com/medimeet/consult-api/pkg/auth"
	"github.com/medimeet/consult-api/pkg/logger"
	"github.com/medimeet/consult-api/pkg/messaging"
	redisbroker "github.com/medimeet/consult-api/pkg/messaging/redis"
	"github.com/medimeet/consult-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	slotRepo := postgres.NewSlotRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	meetingRepo := postgres.NewMeetingRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Event broker; falls back to a no-op broker when Redis is not
	// configured.
	var broker messaging.Broker = messaging.NopBroker{}
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL}, appLogger.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

	m := metrics.NewMetrics("consult", "api")

	jwtSvc := auth.NewJWTService(auth.Config{
		AccessSecret: cfg.Auth.AccessSecret,
		CallSecret:   cfg.Auth.CallSecret,
		APIKey:       cfg.Auth.MediaAPIKey,
		CallTTL:      cfg.Auth.CallTTL,
	})

	// Services
	ledger := slotService.NewLedger(slotRepo)
	bookingSvc := bookingService.NewService(ledger, bookingRepo, broker, m, appLogger)
	queue := meetingService.NewQueue(meetingRepo, broker, m)
	matchBroker := meetingService.NewBroker(queue, userRepo, jwtSvc, broker, m)

	// Handlers
	h := handler.NewHandler()
	bookingH := bookingHandler.NewHandler(bookingSvc)
	slotH := slotHandler.NewHandler(ledger)
	meetingH := meetingHandler.NewHandler(matchBroker, queue)
	heartbeatH := heartbeatHandler.NewHandler(matchBroker)
	promH := prometheusHandler.New()

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(authMiddleware, router.Config{
		HeartbeatRate:  rate.Limit(cfg.Matching.HeartbeatRPS),
		HeartbeatBurst: cfg.Matching.HeartbeatBurst,
		CORS:           middleware.DefaultCORSConfig(),
	})
	r.Setup(h, bookingH, slotH, meetingH, heartbeatH, promH)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
