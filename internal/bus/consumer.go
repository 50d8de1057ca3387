package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/engine"
	"github.com/cutstock/optima/internal/optimizer"
	"github.com/cutstock/optima/internal/tenant"
	"github.com/cutstock/optima/internal/telemetry"
)

// ActivityRun is the engine.ActivityDefinition name the consumer executes
// one optimization run through, registered by the composition root with
// a handler that calls optimizer.Engine.Run.
const ActivityRun = "optimization.run"

// ScenarioStore is the subset of internal/repository.Repository the
// consumer needs to drive a scenario through its lifecycle.
type ScenarioStore interface {
	FindScenarioByID(ctx context.Context, id string) (domain.OptimizationScenario, error)
	UpdateScenarioStatus(ctx context.Context, id string, from, to domain.ScenarioStatus) error
}

// PlanStore is the subset of internal/repository.Repository the consumer
// needs to persist a finished run as a plan.
type PlanStore interface {
	CreatePlan(ctx context.Context, p domain.CuttingPlan, stocks []domain.CuttingPlanStock) (domain.CuttingPlan, error)
}

// Consumer implements the async consumer loop from spec.md §4.13: drain
// optimization.requested, drive the engine, persist the outcome, ack.
//
// Grounded on features/stream/pulse's Subscriber.consume loop (read from
// sink channel, decode, process, ack, repeat until ctx is done or the
// channel closes), generalized from a generic stream.Event decoder to
// this domain's OptimizationRequested payload and from "forward to an
// events channel" to "drive the optimization engine inline".
type Consumer struct {
	Client   Client
	SinkName string

	Scenarios ScenarioStore
	Plans     PlanStore
	// Backend executes the registered ActivityRun activity — either
	// engine.NewInMemory() (inline) or engine.NewTemporal (durable across
	// process restarts).
	Backend engine.Engine
	Dedup   *IdempotencyStore
	Emitter *Emitter
	Logger  telemetry.Logger
}

func (c *Consumer) logger() telemetry.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return telemetry.NewNoopLogger()
}

func (c *Consumer) sinkName() string {
	if c.SinkName != "" {
		return c.SinkName
	}
	return "optima-optimization-consumer"
}

// Run subscribes to StreamRequests and processes messages until ctx is
// canceled or the stream errors. It is meant to run in its own goroutine
// for the lifetime of the process.
func (c *Consumer) Run(ctx context.Context, opts ...streamopts.Sink) error {
	str, err := c.Client.Stream(StreamRequests)
	if err != nil {
		return fmt.Errorf("bus: open request stream: %w", err)
	}
	sink, err := str.NewSink(ctx, c.sinkName(), opts...)
	if err != nil {
		return fmt.Errorf("bus: create request sink: %w", err)
	}
	defer sink.Close(context.Background())

	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			c.process(ctx, sink, evt)
		}
	}
}

func (c *Consumer) process(ctx context.Context, sink Sink, evt *streaming.Event) {
	var req OptimizationRequested
	if err := json.Unmarshal(evt.Payload, &req); err != nil {
		c.logger().Error(ctx, "bus: failed to decode optimization.requested payload", "error", err.Error())
		c.ack(ctx, sink, evt)
		return
	}

	ctx = tenant.WithTenant(ctx, req.TenantID)

	if c.Dedup != nil {
		claimed, err := c.Dedup.ClaimForProcessing(ctx, req.ScenarioID)
		if err != nil {
			c.logger().Warn(ctx, "bus: idempotency check failed, processing anyway", "scenario_id", req.ScenarioID, "error", err.Error())
		} else if !claimed {
			c.logger().Info(ctx, "bus: dropping duplicate optimization.requested delivery", "scenario_id", req.ScenarioID)
			c.ack(ctx, sink, evt)
			return
		}
	}

	c.run(ctx, req)
	c.ack(ctx, sink, evt)
}

func (c *Consumer) ack(ctx context.Context, sink Sink, evt *streaming.Event) {
	if err := sink.Ack(ctx, evt); err != nil {
		c.logger().Error(ctx, "bus: failed to ack optimization.requested", "error", err.Error())
	}
}

// run drives one scenario through RUNNING -> COMPLETED|FAILED. Per
// spec.md §4.13, a scenario already RUNNING or COMPLETED is dropped
// idempotently in addition to the Redis-level dedup above, covering the
// case where the dedup key expired but the scenario itself already
// advanced.
func (c *Consumer) run(ctx context.Context, req OptimizationRequested) {
	scenario, err := c.Scenarios.FindScenarioByID(ctx, req.ScenarioID)
	if err != nil {
		c.logger().Error(ctx, "bus: scenario lookup failed", "scenario_id", req.ScenarioID, "error", err.Error())
		return
	}
	if scenario.Status == domain.ScenarioRunning || scenario.Status == domain.ScenarioCompleted {
		c.logger().Info(ctx, "bus: scenario already in flight or done, dropping", "scenario_id", req.ScenarioID, "status", string(scenario.Status))
		return
	}

	if err := c.Scenarios.UpdateScenarioStatus(ctx, req.ScenarioID, scenario.Status, domain.ScenarioRunning); err != nil {
		c.logger().Error(ctx, "bus: failed to mark scenario RUNNING", "scenario_id", req.ScenarioID, "error", err.Error())
		return
	}
	if c.Emitter != nil {
		c.Emitter.Started(ctx, Started{ScenarioID: req.ScenarioID, CorrelationID: req.CorrelationID})
	}

	params := scenario.Parameters
	if req.Algorithm != "" {
		params.Algorithm = req.Algorithm
	}
	if req.Kerf != nil {
		params.Kerf = *req.Kerf
	}
	if req.AllowRotation != nil {
		params.AllowRotation = *req.AllowRotation
	}

	out, err := c.executeRun(ctx, optimizer.Input{
		TenantID:     req.TenantID,
		CuttingJobID: req.CuttingJobID,
		Parameters:   params,
	})
	if err != nil {
		out = optimizer.Output{Success: false, Err: domain.Wrap(domain.CodeOptimizationFailed, "execute optimization activity", err)}
	}

	if !out.Success {
		msg := "optimization failed"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		if err := c.Scenarios.UpdateScenarioStatus(ctx, req.ScenarioID, domain.ScenarioRunning, domain.ScenarioFailed); err != nil {
			c.logger().Error(ctx, "bus: failed to mark scenario FAILED", "scenario_id", req.ScenarioID, "error", err.Error())
		}
		if c.Emitter != nil {
			c.Emitter.Failed(ctx, Failed{ScenarioID: req.ScenarioID, CorrelationID: req.CorrelationID, Error: msg})
		}
		return
	}

	plan, stocks := planFromOutput(req.ScenarioID, req.TenantID, out)
	created, err := c.Plans.CreatePlan(ctx, plan, stocks)
	if err != nil {
		c.logger().Error(ctx, "bus: failed to persist plan", "scenario_id", req.ScenarioID, "error", err.Error())
		if uerr := c.Scenarios.UpdateScenarioStatus(ctx, req.ScenarioID, domain.ScenarioRunning, domain.ScenarioFailed); uerr != nil {
			c.logger().Error(ctx, "bus: failed to mark scenario FAILED after plan persistence error", "scenario_id", req.ScenarioID, "error", uerr.Error())
		}
		if c.Emitter != nil {
			c.Emitter.Failed(ctx, Failed{ScenarioID: req.ScenarioID, CorrelationID: req.CorrelationID, Error: err.Error()})
		}
		return
	}

	if err := c.Scenarios.UpdateScenarioStatus(ctx, req.ScenarioID, domain.ScenarioRunning, domain.ScenarioCompleted); err != nil {
		c.logger().Error(ctx, "bus: failed to mark scenario COMPLETED", "scenario_id", req.ScenarioID, "error", err.Error())
		return
	}
	if c.Emitter != nil {
		c.Emitter.Completed(ctx, Completed{
			ScenarioID:      req.ScenarioID,
			CorrelationID:   req.CorrelationID,
			PlanID:          created.ID,
			PlanNumber:      created.PlanNumber,
			TotalWaste:      created.TotalWaste,
			WastePercentage: created.WastePercentage,
			StockUsedCount:  created.StockUsedCount,
		})
	}
}

func (c *Consumer) activityName() string {
	return ActivityRun
}

// executeRun runs one optimization through the pluggable engine.Engine
// backend rather than calling optimizer.Engine.Run directly, so a
// Temporal-backed deployment can resume a run that was mid-flight when
// the worker process restarted.
func (c *Consumer) executeRun(ctx context.Context, in optimizer.Input) (optimizer.Output, error) {
	result, err := c.Backend.Execute(ctx, c.activityName(), in)
	if err != nil {
		return optimizer.Output{}, err
	}
	out, ok := result.(optimizer.Output)
	if !ok {
		return optimizer.Output{}, fmt.Errorf("bus: unexpected activity result type %T", result)
	}
	return out, nil
}

func planFromOutput(scenarioID, tenantID string, out optimizer.Output) (domain.CuttingPlan, []domain.CuttingPlanStock) {
	plan := domain.CuttingPlan{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		ScenarioID:      scenarioID,
		TotalWaste:      out.PlanData.TotalWaste,
		WastePercentage: out.PlanData.WastePercentage,
		StockUsedCount:  out.PlanData.StockUsedCount,
	}
	stocks := make([]domain.CuttingPlanStock, 0, len(out.PlanData.Layouts))
	for _, layout := range out.PlanData.Layouts {
		stocks = append(stocks, domain.CuttingPlanStock{
			ID:              uuid.NewString(),
			CuttingPlanID:   plan.ID,
			StockItemID:     layout.StockItemID,
			Waste:           layout.Waste,
			WastePercentage: layout.WastePercentage,
			Layout:          layout.Layout,
		})
	}
	return plan, stocks
}
