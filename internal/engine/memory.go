package engine

import (
	"context"
	"sync"

	"github.com/cutstock/optima/internal/domain"
)

// InMemory is the default Engine: activities run inline, on the caller's
// goroutine, with no durability across process restarts. This is the
// runtime most deployments use — the worker pool (internal/workerpool)
// already provides the concurrency and cancellation spec.md §4.5 asks
// for, so InMemory adds nothing beyond name-based dispatch.
type InMemory struct {
	mu         sync.RWMutex
	activities map[string]ActivityFunc
}

// NewInMemory returns an empty in-memory engine.
func NewInMemory() *InMemory {
	return &InMemory{activities: make(map[string]ActivityFunc)}
}

func (e *InMemory) RegisterActivity(_ context.Context, def ActivityDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activities[def.Name] = def.Handler
	return nil
}

func (e *InMemory) Execute(ctx context.Context, name string, input any) (any, error) {
	e.mu.RLock()
	fn, ok := e.activities[name]
	e.mu.RUnlock()
	if !ok {
		return nil, domain.New(domain.CodeNotFound, "no activity registered for "+name)
	}
	return fn(ctx, input)
}
