package workerpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cutstock/optima/internal/domain"
)

func TestSubmit_CompletesAndReportsStats(t *testing.T) {
	p := New(Options{Size: 2})
	defer p.Close()

	fut, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	}, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := fut.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	stats := p.Stats()
	if stats.Completed != 1 {
		t.Fatalf("expected 1 completed task, got %+v", stats)
	}
}

func TestSubmit_PropagatesTaskError(t *testing.T) {
	p := New(Options{Size: 1})
	defer p.Close()

	sentinel := errors.New("boom")
	fut, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, sentinel
	}, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, gotErr := fut.Get(context.Background())
	if !errors.Is(gotErr, sentinel) {
		t.Fatalf("expected sentinel error, got %v", gotErr)
	}
	if p.Stats().Failed != 1 {
		t.Fatalf("expected 1 failed task, got %+v", p.Stats())
	}
}

func TestSubmit_TimeoutSurfacesTimeoutCode(t *testing.T) {
	p := New(Options{Size: 1})
	defer p.Close()

	fut, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, gotErr := fut.Get(context.Background())
	if domain.CodeOf(gotErr) != domain.CodeTimeout {
		t.Fatalf("expected TIMEOUT code, got %v", gotErr)
	}
}

func TestSubmit_AfterCloseFailsFast(t *testing.T) {
	p := New(Options{Size: 1})
	p.Close()

	_, err := Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, nil
	}, 0)
	if domain.CodeOf(err) != domain.CodeUpstreamUnavailable {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE, got %v", err)
	}
}

func TestSubmit_CancelledBeforeEnqueue(t *testing.T) {
	p := New(Options{Size: 1, QueueCapacity: 1})
	// Block the single worker so the queue stays full, forcing Submit to
	// observe ctx cancellation instead of enqueueing.
	_, _ = Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 0, nil
	}, time.Second)
	// Fill the queue with one more pending task.
	_, _ = Submit(context.Background(), p, func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 0, nil
	}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Submit(ctx, p, func(ctx context.Context) (int, error) {
		return 0, nil
	}, time.Second)
	if domain.CodeOf(err) != domain.CodeCancelled {
		t.Fatalf("expected CANCELLED, got %v", err)
	}
	p.Close()
}

func TestReady_FalseAfterClose(t *testing.T) {
	p := New(Options{Size: 1})
	if !p.Ready() {
		t.Fatal("expected a fresh pool to be ready")
	}
	p.Close()
	if p.Ready() {
		t.Fatal("expected a closed pool to be not-ready")
	}
}
