package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quocvuong92/clirepl/internal/constants"
	"github.com/quocvuong92/clirepl/internal/logging"
	"github.com/quocvuong92/clirepl/internal/parser"
)

var (
	// ErrNoHandler is returned for a command path nothing is registered for.
	ErrNoHandler = errors.New("no handler registered")
	// ErrTimeout is returned when a handler outlives its timeout.
	ErrTimeout = errors.New("command timed out")
	// ErrInvalidPattern is returned by Register for a malformed pattern.
	ErrInvalidPattern = errors.New("invalid pattern")
)

type route struct {
	path   []string
	prefix bool
	fn     HandlerFunc
}

func (r route) match(path []string) bool {
	if r.prefix {
		if len(path) < len(r.path) {
			return false
		}
	} else if len(path) != len(r.path) {
		return false
	}
	for i, name := range r.path {
		if path[i] != name {
			return false
		}
	}
	return true
}

// Registry maps command paths to handlers.
//
// Patterns are space separated command paths:
//   - Exact: "config get" runs for that command only
//   - Prefix: "config *" runs for "config" and anything below it
//   - "*" alone matches every command
//
// An exact route wins over a prefix route; among prefix routes the longest
// one wins.
type Registry struct {
	mu       sync.RWMutex
	routes   []route
	fallback HandlerFunc
	timeout  time.Duration
	logger   logging.StructuredLogger
}

// Option configures a Registry
type Option func(*Registry)

// WithTimeout bounds each handler call. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		r.timeout = timeout
	}
}

// WithFallback runs fn for commands without a route instead of returning
// ErrNoHandler.
func WithFallback(fn HandlerFunc) Option {
	return func(r *Registry) {
		r.fallback = fn
	}
}

// WithLogger sets the registry's logger.
func WithLogger(logger logging.StructuredLogger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry with the default command timeout.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		timeout: constants.DefaultCommandTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetTimeout sets the per-command timeout
func (r *Registry) SetTimeout(timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = timeout
}

// Register binds fn to pattern. Registering the same pattern again replaces
// the earlier handler.
func (r *Registry) Register(pattern string, fn HandlerFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidPattern, pattern)
	}
	rt, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	rt.fn = fn

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.routes {
		if existing.prefix == rt.prefix && equalPath(existing.path, rt.path) {
			r.routes[i] = rt
			return nil
		}
	}
	r.routes = append(r.routes, rt)
	return nil
}

// MustRegister is Register for static tables; it panics on a bad pattern.
func (r *Registry) MustRegister(pattern string, fn HandlerFunc) {
	if err := r.Register(pattern, fn); err != nil {
		panic(err)
	}
}

func parsePattern(pattern string) (route, error) {
	fields := strings.Fields(pattern)
	if len(fields) == 0 {
		return route{}, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	var rt route
	if fields[len(fields)-1] == "*" {
		rt.prefix = true
		fields = fields[:len(fields)-1]
	}
	for _, f := range fields {
		if strings.Contains(f, "*") {
			return route{}, fmt.Errorf("%w: %q: wildcard must be the last word", ErrInvalidPattern, pattern)
		}
	}
	rt.path = fields
	return rt, nil
}

func equalPath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Lookup returns the handler that would run for path.
func (r *Registry) Lookup(path []string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *route
	for i := range r.routes {
		rt := &r.routes[i]
		if !rt.match(path) {
			continue
		}
		if !rt.prefix {
			return rt.fn, true
		}
		if best == nil || len(rt.path) > len(best.path) {
			best = rt
		}
	}
	if best != nil {
		return best.fn, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// Patterns returns the registered patterns, sorted.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		p := strings.Join(rt.path, " ")
		if rt.prefix {
			p = strings.TrimSpace(p + " *")
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Handle runs the handler for cmd under the registry's timeout. It has the
// signature of repl.Handler.
func (r *Registry) Handle(ctx context.Context, cmd *parser.Command) error {
	fn, ok := r.Lookup(cmd.Path)
	if !ok {
		return fmt.Errorf("%w for %q", ErrNoHandler, strings.Join(cmd.Path, " "))
	}

	r.mu.RLock()
	timeout := r.timeout
	r.mu.RUnlock()

	if timeout <= 0 {
		return fn(ctx, cmd)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx, cmd)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("command timed out", logging.Fields{
			"command": strings.Join(cmd.Path, " "),
			"timeout": timeout.String(),
		})
		return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
	}
	r.logger.Debug("command finished", logging.Fields{
		"command":  strings.Join(cmd.Path, " "),
		"duration": time.Since(start).String(),
	})
	return err
}
