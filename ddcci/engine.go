package ddcci

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Engine is the explicit, process-scoped context for an exchange session:
// retry caps/statistics, the verify-setvcp toggle, the feature registry, and
// an optional logger, bundled into one value passed into every operation
// instead of living behind package globals or thread-locals.
type Engine struct {
	Stats    *RetryStats
	Registry FeatureRegistry
	Logger   *log.Logger

	mu     sync.Mutex
	verify bool
}

// NewEngine builds an Engine with fresh retry statistics at default caps, no
// verification, and a nil logger (operations log nothing unless SetLogger
// is called).
func NewEngine(registry FeatureRegistry) *Engine {
	return &Engine{Stats: NewRetryStats(), Registry: registry}
}

// SetVerify enables or disables read-back verification for SetValue.
func (e *Engine) SetVerify(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.verify = v
}

// Verify reports whether read-back verification is currently enabled.
func (e *Engine) Verify() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.verify
}

// SetLogger installs a logger; nil disables logging.
func (e *Engine) SetLogger(l *log.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Logger = l
}

func (e *Engine) logger() *log.Logger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Logger
}

func (e *Engine) debugf(msg string, keyvals ...interface{}) {
	if l := e.logger(); l != nil {
		l.Debug(msg, keyvals...)
	}
}

func (e *Engine) warnf(msg string, keyvals ...interface{}) {
	if l := e.logger(); l != nil {
		l.Warn(msg, keyvals...)
	}
}

func (e *Engine) errorf(msg string, keyvals ...interface{}) {
	if l := e.logger(); l != nil {
		l.Error(msg, keyvals...)
	}
}
