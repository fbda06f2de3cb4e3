package payment

import (
	"context"
	"errors"

	"github.com/jjgames/storefront/internal/models"
)

// ErrUnsupportedMethod indicates an unknown payment method.
var ErrUnsupportedMethod = errors.New("unsupported payment method")

// Simulator stands in for a payment gateway. Card, UPI and netbanking
// "capture" immediately; cash on delivery stays pending until delivery.
type Simulator struct{}

// NewSimulator constructs a payment Simulator.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Outcome resolves the initial payment status for a method.
func (s *Simulator) Outcome(_ context.Context, method string, _ float64) (string, error) {
	switch method {
	case models.PaymentMethodCard, models.PaymentMethodUPI, models.PaymentMethodNetbanking:
		return models.PaymentStatusCompleted, nil
	case models.PaymentMethodCOD:
		return models.PaymentStatusPending, nil
	default:
		return "", ErrUnsupportedMethod
	}
}
