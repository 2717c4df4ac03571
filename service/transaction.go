package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"transaction-svc/catalog"
	"transaction-svc/kafka"
	"transaction-svc/middleware"
	"transaction-svc/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService is the order engine: it turns a validated cart into a
// durable transaction with detail lines, decrementing stock in the same
// database transaction, and owns the status lifecycle afterwards.
type TransactionService struct {
	db       *sql.DB
	catalog  catalog.Catalog
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewTransactionService(db *sql.DB, cat catalog.Catalog, producer sarama.SyncProducer, topic string, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		db:       db,
		catalog:  cat,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

type pricedLine struct {
	product  *models.Product
	quantity int
	subtotal float64
}

// CreateTransaction validates and prices the cart, then writes the
// transaction row, its detail lines and the stock decrements as one unit.
// Any failure aborts the whole write: no partial orders, no partial stock
// changes.
func (s *TransactionService) CreateTransaction(ctx context.Context, customerID int, req models.CreateTransactionRequest) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, markTransient(err)
	}
	defer tx.Rollback()

	// Lock every product row up front so the stock check and the decrement
	// below see the same quantity even under concurrent orders.
	lines := make([]pricedLine, 0, len(req.Products))
	var grandTotal float64
	for _, item := range req.Products {
		product, err := s.catalog.GetProductForUpdate(ctx, tx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				middleware.RecordTransactionFailure("product_not_found")
				return nil, ErrProductNotFound
			}
			return nil, markTransient(err)
		}
		if product.Stock < item.Quantity {
			middleware.RecordTransactionFailure("insufficient_stock")
			return nil, &InsufficientStockError{
				Product: product.Name,
				Stock:   product.Stock,
				Wanted:  item.Quantity,
			}
		}
		subtotal := product.Price * float64(item.Quantity)
		grandTotal += subtotal
		lines = append(lines, pricedLine{product: product, quantity: item.Quantity, subtotal: subtotal})
	}

	if grandTotal <= 0 {
		middleware.RecordTransactionFailure("empty_order")
		return nil, ErrEmptyOrder
	}

	method := models.PaymentMethod(req.PaymentMethod)
	lineStatus := models.InitialPaymentStatus(method)

	transaction := &models.Transaction{
		CustomerID:    customerID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		PaymentMethod: method,
		GrandTotal:    grandTotal,
		Status:        models.FulfillmentStatusPending,
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO transactions (customer_id, name, email, phone, address, payment_method, grand_total, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		transaction.CustomerID, transaction.Name, transaction.Email, transaction.Phone,
		transaction.Address, transaction.PaymentMethod, transaction.GrandTotal, transaction.Status,
	).Scan(&transaction.ID, &transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		return nil, markTransient(err)
	}

	for _, line := range lines {
		detail := models.DetailTransaction{
			TransactionID: transaction.ID,
			ProductID:     line.product.ID,
			Quantity:      line.quantity,
			Subtotal:      line.subtotal,
			Status:        lineStatus,
			Product:       line.product,
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO detail_transactions (transaction_id, product_id, quantity, subtotal, status)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			detail.TransactionID, detail.ProductID, detail.Quantity, detail.Subtotal, detail.Status,
		).Scan(&detail.ID)
		if err != nil {
			return nil, markTransient(err)
		}

		if err := s.catalog.DecrementStock(ctx, tx, line.product.ID, line.quantity); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				middleware.RecordTransactionFailure("insufficient_stock")
				return nil, &InsufficientStockError{
					Product: line.product.Name,
					Stock:   line.product.Stock,
					Wanted:  line.quantity,
				}
			}
			return nil, markTransient(err)
		}
		line.product.Stock -= line.quantity
		transaction.Details = append(transaction.Details, detail)
	}

	if err := tx.Commit(); err != nil {
		return nil, markTransient(err)
	}

	productIDs := make([]int, len(lines))
	for i, line := range lines {
		productIDs[i] = line.product.ID
	}
	s.catalog.InvalidateProducts(ctx, productIDs)
	middleware.RecordTransactionCreated()

	s.publishEvent(ctx, "transaction_created", transaction)

	s.logger.Info("Transaction created",
		zap.Int("transaction_id", transaction.ID),
		zap.Int("customer_id", customerID),
		zap.Float64("grand_total", grandTotal),
		zap.String("payment_method", req.PaymentMethod))

	return transaction, nil
}

// ListTransactions returns all of the customer's transactions, newest
// first, with their detail lines.
func (s *TransactionService) ListTransactions(ctx context.Context, customerID int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, name, email, phone, address, payment_method, grand_total, status, created_at, updated_at
		 FROM transactions WHERE customer_id = $1 ORDER BY id DESC`,
		customerID,
	)
	if err != nil {
		return nil, markTransient(err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, markTransient(err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, markTransient(err)
	}

	for i := range transactions {
		details, err := s.loadDetails(ctx, transactions[i].ID)
		if err != nil {
			return nil, err
		}
		transactions[i].Details = details
	}
	return transactions, nil
}

// GetTransaction loads one transaction. Customers only see their own;
// admins see any.
func (s *TransactionService) GetTransaction(ctx context.Context, id, customerID int, asAdmin bool) (*models.Transaction, error) {
	transaction, err := s.loadTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asAdmin && transaction.CustomerID != customerID {
		return nil, ErrUnauthorized
	}

	details, err := s.loadDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	transaction.Details = details
	return transaction, nil
}

// UpdateStatus moves the transaction to the requested fulfillment status,
// subject to the transition graph. Admin-only at the routing layer.
func (s *TransactionService) UpdateStatus(ctx context.Context, id int, status models.FulfillmentStatus) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, markTransient(err)
	}
	defer tx.Rollback()

	var current models.FulfillmentStatus
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM transactions WHERE id = $1 FOR UPDATE", id,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, markTransient(err)
	}

	if !current.CanTransition(status) {
		return nil, &InvalidTransitionError{From: string(current), To: string(status)}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		status, id,
	); err != nil {
		return nil, markTransient(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, markTransient(err)
	}

	transaction, err := s.GetTransaction(ctx, id, 0, true)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "status_updated", transaction)
	return transaction, nil
}

// UpdateLineStatus sets every detail line of the transaction to the
// requested payment status. Every line must admit the transition or the
// whole update is rejected.
func (s *TransactionService) UpdateLineStatus(ctx context.Context, id int, status models.PaymentStatus) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, markTransient(err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT status FROM detail_transactions WHERE transaction_id = $1 FOR UPDATE", id,
	)
	if err != nil {
		return nil, markTransient(err)
	}

	var found bool
	for rows.Next() {
		found = true
		var current models.PaymentStatus
		if err := rows.Scan(&current); err != nil {
			rows.Close()
			return nil, markTransient(err)
		}
		if !current.CanTransition(status) {
			rows.Close()
			return nil, &InvalidTransitionError{From: string(current), To: string(status)}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, markTransient(err)
	}
	if !found {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE detail_transactions SET status = $1 WHERE transaction_id = $2",
		status, id,
	); err != nil {
		return nil, markTransient(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, markTransient(err)
	}

	transaction, err := s.GetTransaction(ctx, id, 0, true)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "status_updated", transaction)
	return transaction, nil
}

// CancelTransaction is the customer self-service cancel: owner only, and
// only while the transaction is still pending. Cancelled is terminal, so a
// second attempt fails the status check.
func (s *TransactionService) CancelTransaction(ctx context.Context, id, customerID int) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, markTransient(err)
	}
	defer tx.Rollback()

	var ownerID int
	var current models.FulfillmentStatus
	err = tx.QueryRowContext(ctx,
		"SELECT customer_id, status FROM transactions WHERE id = $1 FOR UPDATE", id,
	).Scan(&ownerID, &current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, markTransient(err)
	}

	if ownerID != customerID {
		return nil, ErrUnauthorized
	}
	if current != models.FulfillmentStatusPending {
		return nil, &CannotCancelError{Reason: "already processed"}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		models.FulfillmentStatusCancelled, id,
	); err != nil {
		return nil, markTransient(err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE detail_transactions SET status = $1 WHERE transaction_id = $2",
		models.PaymentStatusCancelled, id,
	); err != nil {
		return nil, markTransient(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, markTransient(err)
	}

	transaction, err := s.GetTransaction(ctx, id, customerID, false)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "transaction_cancelled", transaction)

	s.logger.Info("Transaction cancelled",
		zap.Int("transaction_id", id),
		zap.Int("customer_id", customerID))

	return transaction, nil
}

// ApplyPaymentEvent folds an external payment outcome into the lifecycle:
// success settles the lines and the order, failure cancels both. Illegal
// transitions are logged and skipped so a replayed event cannot wedge the
// consumer.
func (s *TransactionService) ApplyPaymentEvent(ctx context.Context, transactionID int, success bool) error {
	orderStatus := models.FulfillmentStatusCancelled
	lineStatus := models.PaymentStatusCancelled
	if success {
		orderStatus = models.FulfillmentStatusPaid
		lineStatus = models.PaymentStatusPaid
	}

	if _, err := s.UpdateStatus(ctx, transactionID, orderStatus); err != nil {
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			s.logger.Warn("Ignoring payment event for settled transaction",
				zap.Int("transaction_id", transactionID),
				zap.String("from", ite.From),
				zap.String("to", ite.To))
			return nil
		}
		return err
	}
	if _, err := s.UpdateLineStatus(ctx, transactionID, lineStatus); err != nil {
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			return nil
		}
		return err
	}
	return nil
}

func (s *TransactionService) publishEvent(ctx context.Context, eventType string, t *models.Transaction) {
	if s.producer == nil {
		return
	}
	event := models.TransactionEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		TransactionID: t.ID,
		CustomerID:    t.CustomerID,
		GrandTotal:    t.GrandTotal,
		Status:        t.Status,
		Timestamp:     time.Now(),
	}
	if err := kafka.PublishTransactionEvent(ctx, s.producer, s.topic, event, s.logger); err != nil {
		// Event delivery is best effort; the write already committed.
		s.logger.Error("Failed to publish event",
			zap.String("event_type", eventType),
			zap.Int("transaction_id", t.ID),
			zap.Error(err))
	}
}

func (s *TransactionService) loadTransaction(ctx context.Context, id int) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.QueryRowContext(ctx,
		`SELECT id, customer_id, name, email, phone, address, payment_method, grand_total, status, created_at, updated_at
		 FROM transactions WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.CustomerID, &t.Name, &t.Email, &t.Phone, &t.Address,
		&t.PaymentMethod, &t.GrandTotal, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, markTransient(err)
	}
	return &t, nil
}

func (s *TransactionService) loadDetails(ctx context.Context, transactionID int) ([]models.DetailTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.transaction_id, d.product_id, d.quantity, d.subtotal, d.status,
		        p.id, p.name, p.price, p.stock, p.category_id, p.store_id, p.created_at, p.updated_at
		 FROM detail_transactions d
		 JOIN products p ON p.id = d.product_id
		 WHERE d.transaction_id = $1 ORDER BY d.id`,
		transactionID,
	)
	if err != nil {
		return nil, markTransient(err)
	}
	defer rows.Close()

	var details []models.DetailTransaction
	for rows.Next() {
		var d models.DetailTransaction
		var p models.Product
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.ProductID, &d.Quantity, &d.Subtotal, &d.Status,
			&p.ID, &p.Name, &p.Price, &p.Stock, &p.CategoryID, &p.StoreID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, markTransient(err)
		}
		d.Product = &p
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, markTransient(err)
	}
	return details, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, t *models.Transaction) error {
	return row.Scan(&t.ID, &t.CustomerID, &t.Name, &t.Email, &t.Phone, &t.Address,
		&t.PaymentMethod, &t.GrandTotal, &t.Status, &t.CreatedAt, &t.UpdatedAt)
}
