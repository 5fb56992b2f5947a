package livechat

import (
	"log/slog"
	"time"
)

type options struct {
	Logger     *slog.Logger
	Now        func() time.Time
	Dispatcher Dispatcher
	Hooks      Hooks
}

// Option applies configuration to a coordinator.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:     slog.Default(),
		Now:        time.Now,
		Dispatcher: goDispatcher{},
		Hooks:      noopHooks{},
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger injects the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithDispatcher sets where fire-and-forget notifications run.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		if d != nil {
			o.Dispatcher = d
		}
	}
}

// WithHooks sets the lifecycle hook sink.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		if h != nil {
			o.Hooks = h
		}
	}
}
