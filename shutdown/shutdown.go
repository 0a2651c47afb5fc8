// Package shutdown runs per-component cleanup in reverse registration order
// on process exit, grounded on http.RunServer's signal-wait-then-teardown
// shape but generalized from one Echo server's Shutdown call to an ordered
// registry of arbitrary components (pools, drivers, caches, analytics loops).
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"repoanalyzer.dev/logging"
)

// CleanupFunc tears down one component. It must be idempotent: Run may call
// it more than once if Orchestrator.Run itself is invoked twice.
type CleanupFunc func(ctx context.Context) error

type component struct {
	name    string
	cleanup CleanupFunc
}

// Orchestrator holds the registered components and runs their cleanups in
// reverse registration order: cancel background tasks, close caches, close
// pools, close the graph driver, close analytics — whatever order the
// caller registered in, reversed.
type Orchestrator struct {
	mu         sync.Mutex
	components []component
	ran        bool
	log        *logging.Scoped
}

func New(log *logging.Scoped) *Orchestrator {
	return &Orchestrator{log: log.With(map[string]interface{}{"component": "shutdown"})}
}

// Register appends a named component cleanup. Components registered later
// are torn down first.
func (o *Orchestrator) Register(name string, cleanup CleanupFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.components = append(o.components, component{name: name, cleanup: cleanup})
}

// Run tears down every registered component in reverse registration order,
// collecting and returning every error rather than stopping at the first
// one, so one stuck component never prevents the rest from closing. Safe to
// call more than once; a second call re-runs every cleanup, which each
// CleanupFunc must tolerate.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	components := append([]component(nil), o.components...)
	o.ran = true
	o.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.cleanup(ctx); err != nil {
			o.log.WithError(err).With(map[string]interface{}{"component": c.name}).Error("cleanup failed")
			errs = append(errs, err)
			continue
		}
		o.log.With(map[string]interface{}{"component": c.name}).Info("cleanup complete")
	}

	if len(errs) == 0 {
		return nil
	}
	return &Error{Errs: errs}
}

// HasRun reports whether Run has already been invoked at least once.
func (o *Orchestrator) HasRun() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ran
}

// Error wraps every cleanup failure from one Run call.
type Error struct {
	Errs []error
}

func (e *Error) Error() string {
	msg := "shutdown: "
	for i, err := range e.Errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	return e.Errs
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives, mirroring
// http.RunServer's quit-channel pattern.
func WaitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	signal.Stop(quit)
}
