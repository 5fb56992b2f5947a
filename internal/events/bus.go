// Package events delivers livechat lifecycle hooks to in-process subscribers and,
// optionally, onto a RabbitMQ topic exchange.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Wildcard subscribes to every event name.
const Wildcard = "*"

type Handler func(ctx context.Context, env Envelope) error

var (
	eventsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_hook_events_total",
			Help: "Hook events accepted by the bus, by name.",
		},
		[]string{"name"},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_hook_events_dropped_total",
			Help: "Hook events dropped because the bus buffer was full.",
		},
	)
	handlerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_hook_handler_failures_total",
			Help: "Hook handler errors and panics, by event name.",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(eventsFired, eventsDropped, handlerFailures)
}

// Bus is an asynchronous hook dispatcher. Fire never blocks: when the buffer is full the
// event is dropped and counted.
type Bus struct {
	producer string
	log      *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[string][]Handler

	ch       chan Envelope
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewBus(producer string, buffer int, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	b := &Bus{
		producer: producer,
		log:      logger,
		now:      time.Now,
		handlers: make(map[string][]Handler),
		ch:       make(chan Envelope, buffer),
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.loop()
	return b
}

// Subscribe registers h for name, or for every event when name is Wildcard.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *Bus) Fire(ctx context.Context, name string, payload any) {
	env := NewEnvelope(name, b.producer, payload, b.now())
	if cid, ok := CorrelationID(ctx); ok {
		env.Meta.CorrelationID = &cid
	}

	select {
	case <-b.done:
		eventsDropped.Inc()
		return
	default:
	}

	select {
	case b.ch <- env:
		eventsFired.WithLabelValues(name).Inc()
	default:
		eventsDropped.Inc()
		b.log.Warn("hook bus full, event dropped", slog.String("event", name))
	}
}

// Close stops accepting events and waits until the buffered ones are delivered.
func (b *Bus) Close() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}

func (b *Bus) loop() {
	defer b.wg.Done()
	for {
		select {
		case env := <-b.ch:
			b.deliver(env)
		case <-b.done:
			for {
				select {
				case env := <-b.ch:
					b.deliver(env)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(env Envelope) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[env.Meta.Type])+len(b.handlers[Wildcard]))
	handlers = append(handlers, b.handlers[env.Meta.Type]...)
	handlers = append(handlers, b.handlers[Wildcard]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.call(h, env)
	}
}

func (b *Bus) call(h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			handlerFailures.WithLabelValues(env.Meta.Type).Inc()
			b.log.Error("hook handler panicked",
				slog.String("event", env.Meta.Type),
				slog.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h(ctx, env); err != nil {
		handlerFailures.WithLabelValues(env.Meta.Type).Inc()
		b.log.Error("hook handler failed",
			slog.String("event", env.Meta.Type),
			slog.String("event_id", env.Meta.ID),
			slog.Any("error", err),
		)
	}
}

type correlationKey struct{}

// WithCorrelationID tags ctx so events fired under it carry the id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok && id != ""
}
