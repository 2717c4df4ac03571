package models

// The source of truth for which status changes are legal. The original
// system accepted any status from any status; here the graphs are explicit:
// a line can settle or be cancelled, an order walks pending -> paid ->
// shipped -> completed with cancellation allowed until it ships.

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusCancelled},
	PaymentStatusPaid:    {PaymentStatusCancelled},
}

var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentStatusPending: {FulfillmentStatusPaid, FulfillmentStatusCancelled},
	FulfillmentStatusPaid:    {FulfillmentStatusShipped, FulfillmentStatusCancelled},
	FulfillmentStatusShipped: {FulfillmentStatusCompleted},
}

// CanTransition reports whether a detail line may move to the target
// payment status. A same-state update is treated as a legal no-op.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	if s == to {
		return true
	}
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether the transaction may move to the target
// fulfillment status. Completed and cancelled are terminal.
func (s FulfillmentStatus) CanTransition(to FulfillmentStatus) bool {
	if s == to {
		return true
	}
	for _, next := range fulfillmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialPaymentStatus maps the payment method to the status every new
// detail line starts in: cash settles on pickup so lines open pending,
// every other method is treated as settled up front. This mapping is
// business policy and must not be changed casually.
func InitialPaymentStatus(method PaymentMethod) PaymentStatus {
	if method == PaymentMethodCash {
		return PaymentStatusPending
	}
	return PaymentStatusPaid
}
