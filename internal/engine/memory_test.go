package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/cutstock/optima/internal/domain"
)

func TestInMemory_ExecuteRunsRegisteredActivity(t *testing.T) {
	e := NewInMemory()
	err := e.RegisterActivity(context.Background(), ActivityDefinition{
		Name: "run",
		Handler: func(ctx context.Context, input any) (any, error) {
			return input.(int) * 2, nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := e.Execute(context.Background(), "run", 21)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.(int) != 42 {
		t.Fatalf("got %v, want 42", result)
	}
}

func TestInMemory_ExecuteUnregisteredActivityNotFound(t *testing.T) {
	e := NewInMemory()
	_, err := e.Execute(context.Background(), "missing", nil)
	if domain.CodeOf(err) != domain.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestInMemory_ExecutePropagatesHandlerError(t *testing.T) {
	e := NewInMemory()
	sentinel := errors.New("strategy failed")
	_ = e.RegisterActivity(context.Background(), ActivityDefinition{
		Name:    "run",
		Handler: func(ctx context.Context, input any) (any, error) { return nil, sentinel },
	})
	_, err := e.Execute(context.Background(), "run", nil)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}
