package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/telemetry"
)

// runWorkflowName is the single generic workflow the Temporal engine
// registers: it looks up and calls whichever activity Execute names, so
// registering a new ActivityDefinition never requires registering a new
// Temporal workflow type too.
const runWorkflowName = "OptimizationRunWorkflow"

// TemporalOptions configures the Temporal-backed engine.
type TemporalOptions struct {
	// Client is a pre-configured Temporal client. If nil, ClientOptions
	// builds a lazy one.
	Client client.Client
	// ClientOptions builds the client when Client is nil.
	ClientOptions *client.Options
	// TaskQueue is the queue the worker listens on and workflows start on.
	TaskQueue string
	// DisableTracing skips the OTel interceptor on the worker.
	DisableTracing bool
	Logger         telemetry.Logger
}

// activityInput is what crosses the Temporal workflow→activity boundary:
// the activity name plus its opaque payload, since Temporal's generic
// workflow function dispatches by name rather than by Go type.
type activityInput struct {
	Name    string
	Payload any
}

// Temporal implements Engine using Temporal as the durable execution
// backend: one Execute call starts (or would start, were replay in
// effect) a workflow whose single activity runs the named handler, so a
// packing run already in flight survives a worker process restart.
//
// Grounded on runtime/agent/engine/temporal/engine.go, trimmed to this
// package's single generic workflow/activity pair instead of the
// teacher's per-agent workflow registry (spec.md's optimizer has exactly
// one run shape, not many agent-defined workflow types).
type Temporal struct {
	client      client.Client
	closeClient bool
	taskQueue   string
	logger      telemetry.Logger

	mu         sync.Mutex
	worker     worker.Worker
	started    bool
	activities map[string]ActivityFunc
}

// NewTemporal constructs the Temporal engine adapter and registers its
// generic run workflow with a fresh in-process worker.
func NewTemporal(opts TemporalOptions) (*Temporal, error) {
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal engine: task queue is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	cli := opts.Client
	closeClient := false
	if cli == nil {
		if opts.ClientOptions == nil {
			return nil, fmt.Errorf("temporal engine: client options are required when Client is nil")
		}
		clientOpts := *opts.ClientOptions
		if !opts.DisableTracing {
			interceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{})
			if err != nil {
				return nil, fmt.Errorf("temporal engine: tracing interceptor: %w", err)
			}
			clientOpts.Interceptors = append(clientOpts.Interceptors, interceptor)
		}
		var err error
		cli, err = client.NewLazyClient(clientOpts)
		if err != nil {
			return nil, fmt.Errorf("temporal engine: create client: %w", err)
		}
		closeClient = true
	}

	e := &Temporal{
		client:      cli,
		closeClient: closeClient,
		taskQueue:   opts.TaskQueue,
		logger:      logger,
		activities:  make(map[string]ActivityFunc),
	}
	e.worker = worker.New(cli, opts.TaskQueue, worker.Options{})
	e.worker.RegisterWorkflowWithOptions(e.runWorkflow, workflow.RegisterOptions{Name: runWorkflowName})
	return e, nil
}

// RegisterActivity registers an activity by name with the Temporal
// worker. Must be called before the worker starts serving Execute calls.
func (e *Temporal) RegisterActivity(_ context.Context, def ActivityDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("temporal engine: activity name cannot be empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activities[def.Name] = def.Handler
	e.worker.RegisterActivityWithOptions(e.makeActivityFn(def.Name), activity.RegisterOptions{Name: def.Name})
	return nil
}

func (e *Temporal) makeActivityFn(name string) func(ctx context.Context, in activityInput) (any, error) {
	return func(ctx context.Context, in activityInput) (any, error) {
		e.mu.Lock()
		fn := e.activities[name]
		e.mu.Unlock()
		if fn == nil {
			return nil, domain.New(domain.CodeNotFound, "no activity registered for "+name)
		}
		return fn(ctx, in.Payload)
	}
}

// runWorkflow is the single generic workflow every run goes through: it
// executes exactly one activity, named by the incoming activityInput, and
// returns its result. Workflow code must stay deterministic, so all it
// does is delegate — the actual packing logic lives in the activity.
func (e *Temporal) runWorkflow(ctx workflow.Context, in activityInput) (any, error) {
	ao := workflow.ActivityOptions{StartToCloseTimeout: 2 * time.Minute}
	actx := workflow.WithActivityOptions(ctx, ao)
	var result any
	err := workflow.ExecuteActivity(actx, in.Name, in).Get(actx, &result)
	return result, err
}

func (e *Temporal) ensureStarted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	if err := e.worker.Start(); err != nil {
		return fmt.Errorf("temporal engine: start worker: %w", err)
	}
	e.started = true
	return nil
}

// Execute starts a workflow running the named activity and blocks for its
// result. No workflow ID is set, so the Temporal client assigns a fresh
// one on every call and repeated calls never join an earlier workflow.
func (e *Temporal) Execute(ctx context.Context, name string, input any) (any, error) {
	if err := e.ensureStarted(); err != nil {
		return nil, err
	}
	opts := client.StartWorkflowOptions{TaskQueue: e.taskQueue}
	run, err := e.client.ExecuteWorkflow(ctx, opts, runWorkflowName, activityInput{Name: name, Payload: input})
	if err != nil {
		return nil, domain.Wrap(domain.CodeUpstreamUnavailable, "start temporal workflow", err)
	}
	var result any
	if err := run.Get(ctx, &result); err != nil {
		return nil, domain.Wrap(domain.CodeOptimizationFailed, "temporal workflow failed", err)
	}
	return result, nil
}

// Close stops the worker and, if this engine created the client, closes
// it too.
func (e *Temporal) Close() {
	e.worker.Stop()
	if e.closeClient {
		e.client.Close()
	}
}
