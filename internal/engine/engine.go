// Package engine defines the pluggable execution-backend abstraction used
// to run one optimization (workflow = one run, activity = one strategy
// execution). Two implementations exist: an in-memory engine that runs
// everything inline for the common case, and a Temporal-backed engine for
// deployments where a packing run must survive a process restart.
//
// Grounded on runtime/agent/engine/engine.go's pluggable Engine interface,
// trimmed to what spec.md §4.7 actually needs: a single deterministic
// activity per run rather than a durable, signal-driven workflow — the
// orchestrator (internal/optimizer) never blocks on external input, so the
// teacher's SignalChannel/WorkflowContext machinery has no analogue here.
package engine

import "context"

// ActivityFunc is one unit of executable work: the optimizer's run(input)
// step, scheduled through an Engine so it can run inline or as a durable
// activity depending on the backend.
type ActivityFunc func(ctx context.Context, input any) (any, error)

// ActivityDefinition binds a logical name to its handler, mirroring the
// teacher's registration shape so a Temporal-backed engine can register it
// as a real Temporal activity.
type ActivityDefinition struct {
	Name    string
	Handler ActivityFunc
}

// Engine abstracts activity registration and execution so the optimizer
// and bus consumer do not depend on a specific durable-execution backend.
type Engine interface {
	// RegisterActivity registers an activity definition. Must be called
	// before Execute for that name.
	RegisterActivity(ctx context.Context, def ActivityDefinition) error

	// Execute runs the named activity to completion and returns its
	// result. For the in-memory engine this is a direct call; for the
	// Temporal engine it starts a new workflow that executes the
	// activity and survives a worker restart.
	Execute(ctx context.Context, name string, input any) (any, error)
}
