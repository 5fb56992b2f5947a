package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"livechat-backend/internal/queue"
	"livechat-backend/internal/service/livechat"
	"livechat-backend/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	livechat            *livechat.Services
	routeRegistrars     []RouteRegistrar
	handler             *websocket.Handler
	metrics             *metrics
	log                 *slog.Logger
}

type Option func(*APIServer)

func WithLivechat(services *livechat.Services) Option {
	return func(s *APIServer) { s.livechat = services }
}

func WithWebsocket(handler *websocket.Handler) Option {
	return func(s *APIServer) { s.handler = handler }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *APIServer) {
		if logger != nil {
			s.log = logger
		}
	}
}

func WithRegistrars(registrars ...RouteRegistrar) Option {
	return func(s *APIServer) { s.routeRegistrars = append(s.routeRegistrars, registrars...) }
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, opts ...Option) *APIServer {
	s := &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		log:                 slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(prometheus.DefaultRegisterer, listenAddr, rqm)
	return s
}

// Mux builds the routing table without starting a listener.
func (s *APIServer) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}
	mux.Handle("/metrics", s.metrics.metricsHandler())
	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.metrics.instrument(s.Mux()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", slog.String("addr", s.listenAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped", slog.String("addr", s.listenAddr))
	return nil
}

func (s *APIServer) Livechat() *livechat.Services {
	return s.livechat
}

func (s *APIServer) Handler() *websocket.Handler {
	return s.handler
}

func (s *APIServer) Logger() *slog.Logger {
	return s.log
}
