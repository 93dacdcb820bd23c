package resilience

import (
	"context"
	"errors"
	"testing"
)

func TestRepromptUntilValid(t *testing.T) {
	attempts := 0
	err := Reprompt(context.Background(), 0, func() error {
		attempts++
		if attempts < 4 {
			return ErrInvalidInput
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Reprompt: %v", err)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}

func TestRepromptBounded(t *testing.T) {
	attempts := 0
	err := Reprompt(context.Background(), 3, func() error {
		attempts++
		return ErrInvalidInput
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Reprompt() error = %v, want ErrInvalidInput", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRepromptStopsOnOtherErrors(t *testing.T) {
	stop := errors.New("aborted")
	attempts := 0
	err := Reprompt(context.Background(), 0, func() error {
		attempts++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Reprompt() error = %v, want %v", err, stop)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRepromptCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Reprompt(ctx, 0, func() error {
		attempts++
		cancel()
		return ErrInvalidInput
	})
	if err == nil {
		t.Fatal("Reprompt succeeded after cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
