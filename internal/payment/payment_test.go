package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/jjgames/storefront/internal/models"
)

func TestOutcomePerMethod(t *testing.T) {
	sim := NewSimulator()
	cases := []struct {
		method string
		want   string
	}{
		{models.PaymentMethodCard, models.PaymentStatusCompleted},
		{models.PaymentMethodUPI, models.PaymentStatusCompleted},
		{models.PaymentMethodNetbanking, models.PaymentStatusCompleted},
		{models.PaymentMethodCOD, models.PaymentStatusPending},
	}
	for _, tc := range cases {
		got, errOutcome := sim.Outcome(context.Background(), tc.method, 100)
		if errOutcome != nil {
			t.Fatalf("%s: %v", tc.method, errOutcome)
		}
		if got != tc.want {
			t.Fatalf("%s: status = %q, want %q", tc.method, got, tc.want)
		}
	}
}

func TestOutcomeUnknownMethod(t *testing.T) {
	sim := NewSimulator()
	if _, errOutcome := sim.Outcome(context.Background(), "cheque", 100); !errors.Is(errOutcome, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", errOutcome)
	}
}
