// Package serviceclient implements the process-wide service registry and
// typed client façades from spec.md §4.10. Other modules (cutting-job,
// stock, plan) are expected to run in-process in this deployment; they
// register a Handler under their module name at startup, and the engine
// reaches them only through the typed façades below, never by holding a
// direct reference to the other module's package.
//
// Grounded on runtime/agent/runtime.Runtime's registration map: a
// sync.RWMutex-guarded map populated only during startup registration,
// read under the read lock in steady state, with ErrNotFound/NOT_FOUND surfaced for
// unregistered lookups instead of a panic.
package serviceclient

import (
	"context"
	"sync"

	"github.com/cutstock/optima/internal/domain"
)

// Handler processes one call addressed to a registered module. method and
// path identify the operation (e.g. "GET", "/cutting-jobs/{id}"); data
// carries the request body or query parameters as a loosely typed map,
// mirroring the {method,path,data}->{success,data?,error?} contract
// spec.md §4.10 and §6 describe for inter-module calls.
type Handler func(ctx context.Context, method, path string, data map[string]any) (Response, error)

// Response is the shape every Handler returns. Handlers should prefer
// returning a domain.Error via the error return for failures; Response.Err
// exists so a Handler can report a structured failure without lifting it
// to a Go error (e.g. when relaying an upstream {success:false} payload).
type Response struct {
	Success bool
	Data    map[string]any
	Err     *domain.Error
}

// Registry is the process-wide module -> Handler map described in
// spec.md §4.10. Safe for concurrent use; intended to be populated once
// during composition-root startup and read afterward.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds module to handler. A later call for the same module name
// replaces the previous binding; this allows tests to swap in fakes.
func (r *Registry) Register(module string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[module] = handler
}

// Dispatch routes a call to the handler registered for module. Unknown
// modules or, per the handler's own routing, unknown paths surface
// domain.CodeNotFound, per spec.md §4.10's "unrecognized routes return
// NOT_FOUND".
func (r *Registry) Dispatch(ctx context.Context, module, method, path string, data map[string]any) (Response, error) {
	r.mu.RLock()
	h, ok := r.handlers[module]
	r.mu.RUnlock()
	if !ok {
		return Response{}, domain.New(domain.CodeNotFound, "no handler registered for module: "+module)
	}
	return h(ctx, method, path, data)
}
