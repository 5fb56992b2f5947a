package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/router"
	"livechat-backend/internal/app"
	"livechat-backend/internal/env"
	"livechat-backend/internal/queue"
)

func main() {
	logger := app.NewLogger()
	slog.SetDefault(logger)

	if err := env.Require(env.AgentSecretKey); err != nil {
		logger.Error("config invalid", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	livechatApp, err := app.New(ctx, "livechat-server", logger)
	if err != nil {
		logger.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer livechatApp.Close()

	queueManager := queue.NewRequestQueueManager(env.GetInt(env.QueueSize), env.GetInt(env.QueueWorkers), logger)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		env.Get(env.HTTPAddr),
		queueManager,
		api.WithLogger(logger),
		api.WithLivechat(livechatApp.Services),
		api.WithRegistrars(
			router.UtilsRoutes("/api/livechat/v1"),
			router.LivechatRoutes("/api/livechat/v1"),
		),
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
	}
}
