package models

import "time"

// PaymentStatus is the settlement state of a single detail line.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// FulfillmentStatus is the logistics state of the whole transaction.
type FulfillmentStatus string

const (
	FulfillmentStatusPending   FulfillmentStatus = "pending"
	FulfillmentStatusPaid      FulfillmentStatus = "paid"
	FulfillmentStatusShipped   FulfillmentStatus = "shipped"
	FulfillmentStatusCompleted FulfillmentStatus = "completed"
	FulfillmentStatusCancelled FulfillmentStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Transaction is a customer's checkout submission. The buyer contact fields
// are a snapshot taken at order time and never re-joined against the live
// customer record.
type Transaction struct {
	ID            int                 `json:"id"`
	CustomerID    int                 `json:"customer_id"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	PaymentMethod PaymentMethod       `json:"payment_method"`
	GrandTotal    float64             `json:"grand_total"`
	Status        FulfillmentStatus   `json:"status"`
	Details       []DetailTransaction `json:"details,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// DetailTransaction is one product-quantity line within a transaction.
// Subtotal is frozen at creation time and does not follow later price edits.
type DetailTransaction struct {
	ID            int           `json:"id"`
	TransactionID int           `json:"transaction_id"`
	ProductID     int           `json:"product_id"`
	Quantity      int           `json:"quantity"`
	Subtotal      float64       `json:"subtotal"`
	Status        PaymentStatus `json:"status"`
	Product       *Product      `json:"product,omitempty"`
}

type CartLine struct {
	ProductID int `json:"product_id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required,min=1"`
}

type CreateTransactionRequest struct {
	Name          string     `json:"name" binding:"required"`
	Email         string     `json:"email" binding:"required,email"`
	Phone         string     `json:"phone" binding:"required,numeric"`
	Address       string     `json:"address" binding:"required"`
	PaymentMethod string     `json:"payment_method" binding:"required,oneof=cash credit_card bank_transfer"`
	Products      []CartLine `json:"products" binding:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid shipped completed cancelled"`
}

type UpdateLineStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid cancelled"`
}

// TransactionEvent is published to Kafka on every state change of a
// transaction and consumed back to apply external payment outcomes.
type TransactionEvent struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"` // transaction_created, transaction_cancelled, status_updated, payment_success, payment_failed
	TransactionID int               `json:"transaction_id"`
	CustomerID    int               `json:"customer_id"`
	GrandTotal    float64           `json:"grand_total"`
	Status        FulfillmentStatus `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
}
