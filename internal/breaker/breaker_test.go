package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cutstock/optima/internal/domain"
)

func newTestBreaker() *Breaker {
	return New(Config{
		Name:            "test",
		Timeout:         50 * time.Millisecond,
		Window:          time.Minute,
		ErrorThreshold:  0.5,
		VolumeThreshold: 3,
		ResetTimeout:    30 * time.Millisecond,
	})
}

func TestBreaker_StartsClosedAndAllowsCalls(t *testing.T) {
	b := newTestBreaker()
	got, err := Do(context.Background(), b, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected ok/nil, got %q/%v", got, err)
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed, got %v", b.State())
	}
}

func TestBreaker_TripsOpenAfterErrorRateExceedsThresholdAboveVolume(t *testing.T) {
	b := newTestBreaker()
	failing := func(ctx context.Context) (string, error) { return "", errors.New("boom") }

	for i := 0; i < 3; i++ {
		if _, err := Do(context.Background(), b, failing); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}
	if b.State() != Open {
		t.Fatalf("expected Open after 3/3 failures at volume threshold 3, got %v", b.State())
	}

	_, err := Do(context.Background(), b, func(ctx context.Context) (string, error) { return "ok", nil })
	if domain.CodeOf(err) != domain.CodeCircuitOpen {
		t.Fatalf("expected CIRCUIT_OPEN while open, got %v", err)
	}
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	b := newTestBreaker()
	failing := func(ctx context.Context) (string, error) { return "", errors.New("boom") }
	for i := 0; i < 3; i++ {
		Do(context.Background(), b, failing)
	}
	if b.State() != Open {
		t.Fatalf("expected Open, got %v", b.State())
	}

	time.Sleep(40 * time.Millisecond)
	if b.State() != HalfOpen {
		t.Fatalf("expected HalfOpen after reset timeout, got %v", b.State())
	}

	got, err := Do(context.Background(), b, func(ctx context.Context) (string, error) { return "recovered", nil })
	if err != nil || got != "recovered" {
		t.Fatalf("expected probe to succeed, got %q/%v", got, err)
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed after successful probe, got %v", b.State())
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b := newTestBreaker()
	failing := func(ctx context.Context) (string, error) { return "", errors.New("boom") }
	for i := 0; i < 3; i++ {
		Do(context.Background(), b, failing)
	}
	time.Sleep(40 * time.Millisecond)
	if b.State() != HalfOpen {
		t.Fatalf("expected HalfOpen, got %v", b.State())
	}

	Do(context.Background(), b, failing)
	if b.State() != Open {
		t.Fatalf("expected Open again after failed probe, got %v", b.State())
	}
}

func TestBreaker_TimeoutCountsAsFailure(t *testing.T) {
	b := newTestBreaker()
	slow := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	for i := 0; i < 3; i++ {
		_, err := Do(context.Background(), b, slow)
		if domain.CodeOf(err) != domain.CodeTimeout {
			t.Fatalf("expected TIMEOUT, got %v", err)
		}
	}
	if b.State() != Open {
		t.Fatalf("expected Open after repeated timeouts, got %v", b.State())
	}
}

func TestBreaker_SnapshotReportsNameStateAndHistory(t *testing.T) {
	b := newTestBreaker()
	failing := func(ctx context.Context) (string, error) { return "", errors.New("boom") }
	Do(context.Background(), b, failing)

	snap := b.Snapshot()
	if snap.Name != "test" {
		t.Fatalf("expected snapshot name 'test', got %q", snap.Name)
	}
	if snap.State != Closed {
		t.Fatalf("expected Closed after a single failure below volume threshold, got %v", snap.State)
	}
	if snap.FailureCount != 1 || snap.WindowCalls != 1 {
		t.Fatalf("expected 1 failure out of 1 call, got %+v", snap)
	}
}
