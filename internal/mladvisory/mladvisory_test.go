package mladvisory

import (
	"context"
	"errors"
	"testing"

	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/mlmodel"
	"github.com/cutstock/optima/internal/optimizer"
)

type fakeModel struct {
	text string
	err  error
}

func (f fakeModel) Complete(ctx context.Context, req mlmodel.Request) (mlmodel.Response, error) {
	if f.err != nil {
		return mlmodel.Response{}, f.err
	}
	return mlmodel.Response{Text: f.text}, nil
}

func TestSelectAlgorithm_ParsesStrictJSON(t *testing.T) {
	c := New(Options{Model: fakeModel{text: `{"algorithm":"1D_FFD","confidence":0.91}`}})
	s, err := c.SelectAlgorithm(context.Background(), optimizer.Features{PieceCount: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != domain.Algorithm1DFFD || s.Confidence != 0.91 {
		t.Fatalf("unexpected suggestion: %+v", s)
	}
}

func TestSelectAlgorithm_ToleratesCodeFencedJSON(t *testing.T) {
	c := New(Options{Model: fakeModel{text: "```json\n{\"algorithm\":\"2D_GUILLOTINE\",\"confidence\":0.5}\n```"}})
	s, err := c.SelectAlgorithm(context.Background(), optimizer.Features{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != domain.Algorithm2DGuillotine {
		t.Fatalf("unexpected suggestion: %+v", s)
	}
}

func TestSelectAlgorithm_ProviderErrorSurfaces(t *testing.T) {
	c := New(Options{Model: fakeModel{err: errors.New("upstream down")}})
	_, err := c.SelectAlgorithm(context.Background(), optimizer.Features{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSelectAlgorithm_NoModelConfiguredSurfacesUpstreamUnavailable(t *testing.T) {
	c := New(Options{})
	_, err := c.SelectAlgorithm(context.Background(), optimizer.Features{})
	if domain.CodeOf(err) != domain.CodeUpstreamUnavailable {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE, got %v", err)
	}
}

func TestPredictWaste_ParsesPercentage(t *testing.T) {
	c := New(Options{Model: fakeModel{text: `{"wastePercentage": 12.5}`}})
	v, modelVersion, err := c.PredictWaste(context.Background(), optimizer.Features{}, domain.Algorithm1DFFD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 12.5 || modelVersion != "advisory-v1" {
		t.Fatalf("unexpected result: %v %s", v, modelVersion)
	}
}

func TestPredictTime_MalformedResponseFallsBack(t *testing.T) {
	c := New(Options{Model: fakeModel{text: "not json at all"}})
	_, modelVersion, err := c.PredictTime(context.Background(), optimizer.Features{}, domain.Algorithm1DFFD)
	if err == nil {
		t.Fatal("expected error for malformed response")
	}
	if modelVersion != domain.AlgorithmFallbackModel {
		t.Fatalf("expected fallback model version, got %s", modelVersion)
	}
}

func TestRecordOutcome_DoesNotBlockWithoutModel(t *testing.T) {
	c := New(Options{})
	c.RecordOutcome(context.Background(), Outcome{PlanID: "p-1"})
}

func TestSnapshot_ReportsAllThreeOperationBreakers(t *testing.T) {
	c := New(Options{Model: fakeModel{text: `{"algorithm":"1D_FFD","confidence":0.9}`}})
	snap := c.Snapshot()
	for _, name := range []string{"selectAlgorithm", "predictWaste", "predictTime"} {
		if _, ok := snap[name]; !ok {
			t.Fatalf("expected snapshot entry for %q, got %+v", name, snap)
		}
	}
}
