package arena

import (
	"log/slog"

	"github.com/hupe1980/fixedarena/internal/logging"
	"github.com/hupe1980/fixedarena/resource"
)

type options struct {
	offHeap   bool
	budget    *resource.Controller
	logger    *logging.Logger
	alignment uintptr
	name      string
}

func defaultOptions() options {
	return options{
		logger:    logging.NoopLogger(),
		alignment: DefaultAlignment,
	}
}

// Option configures a Resource.
type Option func(*options)

// WithOffHeap backs the arena with an anonymous memory mapping instead of a Go
// byte slice.
func WithOffHeap() Option {
	return func(o *options) {
		o.offHeap = true
	}
}

// WithMemoryBudget reserves the arena capacity from rc for the lifetime of the
// resource. A refused reservation makes New fail with ErrOutOfMemory.
func WithMemoryBudget(rc *resource.Controller) Option {
	return func(o *options) {
		o.budget = rc
	}
}

// WithLogger sets the logger used for buffer lifecycle and exhaustion events.
//
// If nil is passed, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			o.logger = logging.NoopLogger()
			return
		}
		o.logger = &logging.Logger{Logger: l}
	}
}

// WithDefaultAlignment sets the alignment applied when Allocate is called with
// alignment 0. It must be a power of two.
func WithDefaultAlignment(alignment uintptr) Option {
	return func(o *options) {
		o.alignment = alignment
	}
}

// WithName tags log records and the String form with a name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}
