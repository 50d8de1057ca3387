// Package feedback implements spec.md §4.14: the production-completed
// handler that closes the loop between a predicted plan and its actual
// shop-floor outcome.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"

	"github.com/cutstock/optima/internal/bus"
	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/mladvisory"
	"github.com/cutstock/optima/internal/telemetry"
)

// StreamProduction is the topic production.completed arrives on.
const StreamProduction = "production.completed"

// ProductionCompleted is the inbound message spec.md §4.14 names:
// "production.completed{planId, actualWaste, actualTimeSeconds}".
type ProductionCompleted struct {
	PlanID            string  `json:"planId"`
	ActualWaste       float64 `json:"actualWaste"`
	ActualTimeSeconds float64 `json:"actualTimeSeconds"`
}

// PlanLookup is the subset of internal/repository.Repository the handler
// needs to recover a plan's predicted waste/time.
type PlanLookup interface {
	FindPlanByID(ctx context.Context, id string) (domain.CuttingPlan, error)
}

// Recorder is the subset of internal/mladvisory.Client the handler drives.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome mladvisory.Outcome)
}

// Handler subscribes to production.completed, recovers each plan's
// predicted waste/time, and forwards the predicted and actual figures to
// the ML advisory's outcome recorder. The handler computes no error
// itself; mladvisory.Client.RecordOutcome logs the signed differences,
// and no relative error is computed anywhere. Per spec.md §4.14, all persistence
// of training data is out of scope here: the handler only forwards.
//
// Grounded on the same Pulse Subscriber.Subscribe/consume channel-select
// loop as internal/bus.Consumer, reused at a smaller scope (no
// idempotency store, no state-machine transition — this handler has no
// side effect besides logging and a forwarded call).
type Handler struct {
	Client   bus.Client
	SinkName string

	Plans    PlanLookup
	Advisor  Recorder
	Logger   telemetry.Logger
}

func (h *Handler) logger() telemetry.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return telemetry.NewNoopLogger()
}

func (h *Handler) sinkName() string {
	if h.SinkName != "" {
		return h.SinkName
	}
	return "optima-feedback-consumer"
}

// Run subscribes to StreamProduction and processes messages until ctx is
// canceled or the stream errors.
func (h *Handler) Run(ctx context.Context, opts ...streamopts.Sink) error {
	str, err := h.Client.Stream(StreamProduction)
	if err != nil {
		return fmt.Errorf("feedback: open production stream: %w", err)
	}
	sink, err := str.NewSink(ctx, h.sinkName(), opts...)
	if err != nil {
		return fmt.Errorf("feedback: create production sink: %w", err)
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
			h.process(ctx, sink, evt)
		}
	}
}

func (h *Handler) process(ctx context.Context, sink bus.Sink, evt *streaming.Event) {
	defer func() {
		if err := sink.Ack(ctx, evt); err != nil {
			h.logger().Error(ctx, "feedback: failed to ack production.completed", "error", err.Error())
		}
	}()

	var msg ProductionCompleted
	if err := json.Unmarshal(evt.Payload, &msg); err != nil {
		h.logger().Error(ctx, "feedback: failed to decode production.completed payload", "error", err.Error())
		return
	}

	plan, err := h.Plans.FindPlanByID(ctx, msg.PlanID)
	if err != nil {
		h.logger().Error(ctx, "feedback: plan lookup failed", "plan_id", msg.PlanID, "error", err.Error())
		return
	}

	predictedTime := 0.0
	if plan.EstimatedTime != nil {
		predictedTime = *plan.EstimatedTime
	}

	outcome := mladvisory.Outcome{
		PlanID:           msg.PlanID,
		PredictedWaste:   plan.WastePercentage,
		ActualWaste:      msg.ActualWaste,
		PredictedTimeSec: predictedTime,
		ActualTimeSec:    msg.ActualTimeSeconds,
	}
	h.Advisor.RecordOutcome(ctx, outcome)
}
