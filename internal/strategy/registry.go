// Package strategy is the process-wide registry of packing algorithms
// described in spec.md §4.4. It exposes typed lookups for the 1D and 2D
// strategy functions so the engine orchestrator never imports
// internal/strategy1d or internal/strategy2d directly.
//
// Grounded on runtime/registry/manager.go's name-to-handler registration
// pattern (register once, look up by name, reject unknown names with a
// typed error) generalized from service handlers to packing strategies.
package strategy

import (
	"sync"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/strategy1d"
	"github.com/cutstock/optima/internal/strategy2d"
)

// Fn1D is the function shape every 1D strategy implements.
type Fn1D func(pieces []strategy1d.Piece, stock []strategy1d.Stock, opts strategy1d.Options) strategy1d.Result

// Fn2D is the function shape every 2D strategy implements.
type Fn2D func(pieces []strategy2d.Piece, stock []strategy2d.Stock, opts strategy2d.Options) strategy2d.Result

// Registry holds the registered 1D and 2D strategies, keyed by the
// algorithm names spec.md §4.4 recognizes.
type Registry struct {
	mu   sync.RWMutex
	fn1D map[domain.Algorithm]Fn1D
	fn2D map[domain.Algorithm]Fn2D
}

// New returns an empty registry. Use Default for the process-wide,
// pre-populated instance.
func New() *Registry {
	return &Registry{
		fn1D: make(map[domain.Algorithm]Fn1D),
		fn2D: make(map[domain.Algorithm]Fn2D),
	}
}

// Register1D registers a 1D strategy under name. Re-registering the same
// name replaces the previous entry, keeping initialization idempotent.
func (r *Registry) Register1D(name domain.Algorithm, fn Fn1D) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fn1D[name] = fn
}

// Register2D registers a 2D strategy under name.
func (r *Registry) Register2D(name domain.Algorithm, fn Fn2D) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fn2D[name] = fn
}

// Lookup1D returns the registered 1D strategy for name, or
// ALGORITHM_NOT_FOUND if name is unrecognized or registered as a 2D
// strategy instead.
func (r *Registry) Lookup1D(name domain.Algorithm) (Fn1D, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fn1D[name]
	if !ok {
		return nil, domain.New(domain.CodeAlgorithmNotFound, "no 1D strategy registered for "+string(name))
	}
	return fn, nil
}

// Lookup2D returns the registered 2D strategy for name, or
// ALGORITHM_NOT_FOUND if name is unrecognized or registered as a 1D
// strategy instead.
func (r *Registry) Lookup2D(name domain.Algorithm) (Fn2D, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fn2D[name]
	if !ok {
		return nil, domain.New(domain.CodeAlgorithmNotFound, "no 2D strategy registered for "+string(name))
	}
	return fn, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, populated exactly once with
// the four recognized algorithms (1D_FFD, 1D_BFD, 2D_BOTTOM_LEFT,
// 2D_GUILLOTINE).
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
		defaultReg.Register1D(domain.Algorithm1DFFD, strategy1d.FFD)
		defaultReg.Register1D(domain.Algorithm1DBFD, strategy1d.BFD)
		defaultReg.Register2D(domain.Algorithm2DBottomLeft, strategy2d.BottomLeft)
		defaultReg.Register2D(domain.Algorithm2DGuillotine, strategy2d.Guillotine)
	})
	return defaultReg
}
