package models

import "testing"

func TestInitialPaymentStatus(t *testing.T) {
	tests := []struct {
		method PaymentMethod
		want   PaymentStatus
	}{
		{PaymentMethodCash, PaymentStatusPending},
		{PaymentMethodCreditCard, PaymentStatusPaid},
		{PaymentMethodBankTransfer, PaymentStatusPaid},
	}

	for _, tt := range tests {
		if got := InitialPaymentStatus(tt.method); got != tt.want {
			t.Errorf("InitialPaymentStatus(%s) = %s, want %s", tt.method, got, tt.want)
		}
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusPending, PaymentStatusPaid, true},
		{PaymentStatusPending, PaymentStatusCancelled, true},
		{PaymentStatusPaid, PaymentStatusCancelled, true},
		{PaymentStatusPaid, PaymentStatusPending, false},
		{PaymentStatusCancelled, PaymentStatusPending, false},
		{PaymentStatusCancelled, PaymentStatusPaid, false},
		{PaymentStatusPaid, PaymentStatusPaid, true},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Errorf("PaymentStatus %s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestFulfillmentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    FulfillmentStatus
		to      FulfillmentStatus
		allowed bool
	}{
		{FulfillmentStatusPending, FulfillmentStatusPaid, true},
		{FulfillmentStatusPending, FulfillmentStatusCancelled, true},
		{FulfillmentStatusPaid, FulfillmentStatusShipped, true},
		{FulfillmentStatusPaid, FulfillmentStatusCancelled, true},
		{FulfillmentStatusShipped, FulfillmentStatusCompleted, true},
		{FulfillmentStatusPending, FulfillmentStatusShipped, false},
		{FulfillmentStatusShipped, FulfillmentStatusCancelled, false},
		{FulfillmentStatusCompleted, FulfillmentStatusPending, false},
		{FulfillmentStatusCancelled, FulfillmentStatusPaid, false},
		{FulfillmentStatusPending, FulfillmentStatusPending, true},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Errorf("FulfillmentStatus %s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}
