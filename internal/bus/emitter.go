package bus

import (
	"context"
	"encoding/json"

	"github.com/cutstock/optima/internal/telemetry"
)

// Emitter publishes the outbound events spec.md §4.13 names to the Redis-
// backed Pulse stream and, best-effort, to an in-process LocalBus for
// websocket/telemetry subscribers. A LocalBus publish never fails; a
// Redis publish failure is logged and swallowed so it never aborts the
// engine run in progress, per spec.md §4.13's "emitter failures don't
// abort the engine".
type Emitter struct {
	Stream Stream
	Local  *LocalBus
	Logger telemetry.Logger
}

func (e *Emitter) logger() telemetry.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return telemetry.NewNoopLogger()
}

func (e *Emitter) publish(ctx context.Context, name string, payload any) {
	if e.Local != nil {
		e.Local.Publish(ctx, LocalEvent{Name: name, Payload: payload})
	}
	if e.Stream == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger().Warn(ctx, "bus: failed to marshal event payload", "event", name, "error", err.Error())
		return
	}
	if _, err := e.Stream.Add(ctx, name, data); err != nil {
		e.logger().Warn(ctx, "bus: failed to publish event", "event", name, "error", err.Error())
	}
}

// Started publishes optimization.started.
func (e *Emitter) Started(ctx context.Context, evt Started) { e.publish(ctx, eventOptimizationStarted, evt) }

// Progress publishes optimization.progress.
func (e *Emitter) Progress(ctx context.Context, evt Progress) {
	e.publish(ctx, eventOptimizationProgress, evt)
}

// Completed publishes optimization.completed.
func (e *Emitter) Completed(ctx context.Context, evt Completed) {
	e.publish(ctx, eventOptimizationCompleted, evt)
}

// Failed publishes optimization.failed.
func (e *Emitter) Failed(ctx context.Context, evt Failed) { e.publish(ctx, eventOptimizationFailed, evt) }

// PlanStatusUpdated publishes plan.status.updated.
func (e *Emitter) PlanStatusUpdated(ctx context.Context, evt PlanStatusUpdated) {
	e.publish(ctx, eventPlanStatusUpdated, evt)
}
