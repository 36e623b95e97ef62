package bootstrap

import (
	"time"

	"github.com/kbukum/scopecache/activation"
	"github.com/kbukum/scopecache/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	pipeline        activation.Pipeline
	gracefulTimeout time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{gracefulTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithPipeline sets the deactivation pipeline of the cache. The default is
// activation.CloserPipeline.
func WithPipeline(p activation.Pipeline) Option {
	return func(o *appOptions) { o.pipeline = p }
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}
