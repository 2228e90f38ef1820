package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"line-membership-bot/internal/common/config"
	"line-membership-bot/internal/common/logger"
	"line-membership-bot/internal/common/middleware"
	"line-membership-bot/internal/features/bot"
	bothttp "line-membership-bot/internal/features/bot/delivery/http"
	memberRepo "line-membership-bot/internal/features/member/repository/redis"
	"line-membership-bot/internal/features/signup"
	"line-membership-bot/internal/orchestration"
	"line-membership-bot/internal/orchestration/redisstore"
	"line-membership-bot/internal/platform/line"
	redisplatform "line-membership-bot/internal/platform/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("line-membership-bot", cfg.Debug)

	redisClient, err := redisplatform.Open(ctx,
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	lineClient, err := line.NewClient(cfg.Line.ChannelSecret, cfg.Line.ChannelAccessToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create LINE client")
	}

	members := memberRepo.NewMemberRepository(redisClient)

	orch := orchestration.NewClient(redisstore.NewStore(redisClient))
	orch.Register(signup.NewWorkflow(members, lineClient))

	eventRouter := bot.NewRouter(orch, members, lineClient)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())

	bothttp.NewWebhookHandler(lineClient.Bot(), eventRouter).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
