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
	"livechat-backend/internal/websocket"
)

func main() {
	logger := app.NewLogger()
	slog.SetDefault(logger)

	if err := env.Require(env.AgentSecretKey, env.ChatRedisURL); err != nil {
		logger.Error("config invalid", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := websocket.NewRedisClient()
	defer redisClient.Close()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	handler := websocket.NewHandler(ctx, hub, redisClient, logger)

	queueManager := queue.NewRequestQueueManager(env.GetInt(env.QueueSize), env.GetInt(env.QueueWorkers), logger)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		env.Get(env.WSAddr),
		queueManager,
		api.WithLogger(logger),
		api.WithWebsocket(handler),
		api.WithRegistrars(
			router.UtilsRoutes("/api/ws/v1"),
			router.WebsocketRoutes("/api/ws/v1"),
		),
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
	}
}
