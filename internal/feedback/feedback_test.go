package feedback

import (
	"context"
	"encoding/json"
	"testing"

	"goa.design/pulse/streaming"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/mladvisory"
)

type fakeSink struct {
	acked []*streaming.Event
}

func (f *fakeSink) Subscribe() <-chan *streaming.Event { return nil }

func (f *fakeSink) Ack(ctx context.Context, evt *streaming.Event) error {
	f.acked = append(f.acked, evt)
	return nil
}

func (f *fakeSink) Close(ctx context.Context) {}

type fakePlans struct {
	plan domain.CuttingPlan
	err  error
}

func (f fakePlans) FindPlanByID(ctx context.Context, id string) (domain.CuttingPlan, error) {
	return f.plan, f.err
}

type fakeRecorder struct {
	outcomes []mladvisory.Outcome
}

func (f *fakeRecorder) RecordOutcome(ctx context.Context, outcome mladvisory.Outcome) {
	f.outcomes = append(f.outcomes, outcome)
}

func estimatedTime(v float64) *float64 { return &v }

func TestHandler_ProcessForwardsPredictionErrorToRecorder(t *testing.T) {
	plan := domain.CuttingPlan{
		ID:              "plan-1",
		WastePercentage: 12.5,
		EstimatedTime:   estimatedTime(90),
	}
	recorder := &fakeRecorder{}
	h := &Handler{Plans: fakePlans{plan: plan}, Advisor: recorder}

	payload, _ := json.Marshal(ProductionCompleted{PlanID: "plan-1", ActualWaste: 15, ActualTimeSeconds: 100})
	sink := &fakeSink{}
	h.process(context.Background(), sink, &streaming.Event{ID: "1-0", EventName: "production.completed", Payload: payload})

	if len(recorder.outcomes) != 1 {
		t.Fatalf("expected one recorded outcome, got %d", len(recorder.outcomes))
	}
	got := recorder.outcomes[0]
	if got.PlanID != "plan-1" || got.PredictedWaste != 12.5 || got.ActualWaste != 15 || got.PredictedTimeSec != 90 || got.ActualTimeSec != 100 {
		t.Fatalf("unexpected outcome: %+v", got)
	}
	if len(sink.acked) != 1 {
		t.Fatalf("expected message to be acked, got %d acks", len(sink.acked))
	}
}

func TestHandler_ProcessAcksMalformedPayloadWithoutCallingRecorder(t *testing.T) {
	recorder := &fakeRecorder{}
	h := &Handler{Plans: fakePlans{}, Advisor: recorder}
	sink := &fakeSink{}

	h.process(context.Background(), sink, &streaming.Event{ID: "1-0", Payload: []byte("not json")})

	if len(recorder.outcomes) != 0 {
		t.Fatalf("expected no recorded outcome for malformed payload")
	}
	if len(sink.acked) != 1 {
		t.Fatalf("expected malformed payload to still be acked, got %d acks", len(sink.acked))
	}
}

func TestHandler_ProcessAcksWhenPlanLookupFails(t *testing.T) {
	recorder := &fakeRecorder{}
	h := &Handler{Plans: fakePlans{err: domain.New(domain.CodePlanNotFound, "plan not found")}, Advisor: recorder}
	sink := &fakeSink{}

	payload, _ := json.Marshal(ProductionCompleted{PlanID: "missing"})
	h.process(context.Background(), sink, &streaming.Event{ID: "1-0", Payload: payload})

	if len(recorder.outcomes) != 0 {
		t.Fatalf("expected no recorded outcome when plan lookup fails")
	}
	if len(sink.acked) != 1 {
		t.Fatalf("expected event to still be acked, got %d acks", len(sink.acked))
	}
}
