// Package app assembles the livechat core from its infrastructure: DynamoDB for state,
// redis for broadcasts, the in-process hook bus with an optional RabbitMQ forwarder.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"livechat-backend/internal/businesshours"
	"livechat-backend/internal/database"
	"livechat-backend/internal/env"
	"livechat-backend/internal/events"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/routing"
	"livechat-backend/internal/service/livechat"
	"livechat-backend/internal/settings"
	"livechat-backend/internal/websocket"

	"github.com/go-redis/redis/v8"
)

type App struct {
	Services *livechat.Services
	Repo     *livechat.DynamoRepository
	Bus      *events.Bus
	Log      *slog.Logger

	redis     *redis.Client
	dispatch  *queue.RequestQueueManager
	publisher *events.AMQPPublisher
}

// NewLogger builds the JSON logger every binary uses, at the level named by LOG_LEVEL.
func NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(env.GetOrDefault(env.LogLevel, "info"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// New connects to the backing services and wires the coordinators. producer names this
// process in hook envelopes.
func New(ctx context.Context, producer string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = NewLogger()
	}
	if err := env.Require(env.AWSRegion, env.ChatRedisURL); err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(ctx)
	if err != nil {
		return nil, err
	}

	hoursConfig, err := businesshours.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("business hours: %w", err)
	}
	hours, err := businesshours.New(hoursConfig)
	if err != nil {
		return nil, fmt.Errorf("business hours: %w", err)
	}

	a := &App{
		Repo:     livechat.NewDynamoRepository(db),
		Bus:      events.NewBus(producer, env.GetInt(env.EventsBuffer), logger),
		Log:      logger,
		redis:    websocket.NewRedisClient(),
		dispatch: queue.NewRequestQueueManager(env.GetInt(env.QueueSize), 2, logger.With(slog.String("queue", "notifications"))),
	}

	a.Bus.Subscribe(events.Wildcard, func(ctx context.Context, e events.Envelope) error {
		logger.Debug("hook fired", slog.String("event", e.Meta.Type), slog.String("id", e.Meta.ID))
		return nil
	})
	if url := strings.TrimSpace(env.Get(env.EventsAMQPURL)); url != "" {
		if err := a.connectAMQP(ctx, url); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Services = Wire(Deps{
		Store:         a.Repo,
		Directory:     a.Repo,
		Departments:   livechat.DepartmentView{Repo: a.Repo},
		Transcript:    a.Repo,
		HistorySink:   a.Repo,
		RoutingStore:  a.Repo,
		Notifier:      websocket.NewBroadcaster(a.redis),
		Hooks:         a.Bus,
		Dispatcher:    a.dispatch,
		BusinessHours: hours,
		Settings:      settings.EnvSettings{},
		Logger:        logger,
	})
	return a, nil
}

func (a *App) connectAMQP(ctx context.Context, url string) error {
	conn, err := events.DialWithRetry(ctx, events.ConnectionOptions{
		URL:           url,
		RetryAttempts: 5,
		Delay:         time.Second,
		Logger:        a.Log,
	})
	if err != nil {
		return err
	}
	publisher, err := events.NewAMQPPublisher(conn, env.Get(env.EventsExchange), a.Log)
	if err != nil {
		conn.Close()
		return err
	}
	a.publisher = publisher
	a.Bus.Subscribe(events.Wildcard, publisher.Handler())
	return nil
}

// Close drains pending hooks and notifications before releasing connections.
func (a *App) Close() {
	a.Bus.Close()
	a.dispatch.Shutdown()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Log.Warn("amqp close failed", slog.Any("error", err))
		}
	}
	if err := a.redis.Close(); err != nil {
		a.Log.Warn("redis close failed", slog.Any("error", err))
	}
}

// Deps are the collaborators Wire needs. Nil Notifier, Hooks, BusinessHours and Settings
// are allowed.
type Deps struct {
	Store         livechat.ConversationStore
	Directory     livechat.Directory
	Departments   livechat.Departments
	Transcript    livechat.TranscriptReader
	HistorySink   livechat.HistorySink
	RoutingStore  routing.Store
	Notifier      livechat.Notifier
	Hooks         livechat.Hooks
	Dispatcher    livechat.Dispatcher
	BusinessHours livechat.BusinessHours
	Settings      livechat.Settings
	Logger        *slog.Logger
}

// Wire builds the coordinators over deps, sharing one history recorder between the
// transfer coordinator and the router.
func Wire(deps Deps) *livechat.Services {
	opts := []livechat.Option{
		livechat.WithLogger(deps.Logger),
		livechat.WithDispatcher(deps.Dispatcher),
		livechat.WithHooks(deps.Hooks),
	}

	recorder := livechat.NewHistoryRecorder(deps.HistorySink, deps.Notifier, opts...)
	router := routing.New(deps.RoutingStore, recorder, deps.Notifier, deps.Logger)

	return &livechat.Services{
		Store:        deps.Store,
		Directory:    deps.Directory,
		Transcript:   deps.Transcript,
		History:      recorder,
		Availability: livechat.NewAvailabilityResolver(deps.Directory, deps.Departments, deps.Settings, opts...),
		Transfers: livechat.NewTransferCoordinator(livechat.TransferDeps{
			Store:       deps.Store,
			Directory:   deps.Directory,
			Departments: deps.Departments,
			Router:      router,
			Recorder:    recorder,
		}, opts...),
		Status: livechat.NewAgentStatusCoordinator(livechat.AgentStatusDeps{
			Directory:     deps.Directory,
			Store:         deps.Store,
			Notifier:      deps.Notifier,
			BusinessHours: deps.BusinessHours,
			Settings:      deps.Settings,
		}, opts...),
	}
}
