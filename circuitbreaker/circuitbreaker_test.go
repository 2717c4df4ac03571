package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_TripsAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Expected underlying error, got %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state open after 3 failures, got %s", cb.GetState())
	}

	if err := cb.Execute(ctx, func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen while open, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	ctx := context.Background()

	cb.Execute(ctx, func() error { return errBoom })
	cb.Execute(ctx, func() error { return errBoom })
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	// Two more failures must not trip a freshly reset breaker.
	cb.Execute(ctx, func() error { return errBoom })
	cb.Execute(ctx, func() error { return errBoom })
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state closed, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	cb.Execute(ctx, func() error { return errBoom })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state open, got %s", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	// First probe after the timeout runs and, on success, closes the circuit.
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Expected probe to run, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state closed after successful probe, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)
	ctx := context.Background()

	cb.Execute(ctx, func() error { return errBoom })
	cb.Execute(ctx, func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(ctx, func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("Expected probe error, got %v", err)
	}
	if cb.GetState() != StateOpen {
		t.Errorf("Expected state open after failed probe, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("Function must not run with a cancelled context")
	}
}
