package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"transaction-svc/middleware"
	"transaction-svc/models"
	"transaction-svc/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	svc    *service.TransactionService
	logger *zap.Logger
}

func NewTransactionHandler(svc *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, logger: logger}
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	ctx, span := otel.Tracer("transaction-service").Start(c.Request.Context(), "CreateTransaction")
	defer span.End()

	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"kind":    "validation",
			"details": err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.Int("customer_id", p.UserID),
		attribute.Int("lines", len(req.Products)),
		attribute.String("payment_method", req.PaymentMethod),
	)

	transaction, err := h.svc.CreateTransaction(ctx, p.UserID, req)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("transaction.id", transaction.ID))
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Transaction created successfully",
		"transaction": transaction,
	})
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	ctx, span := otel.Tracer("transaction-service").Start(c.Request.Context(), "ListTransactions")
	defer span.End()

	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transactions, err := h.svc.ListTransactions(ctx, p.UserID)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("transactions.count", len(transactions)))
	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	ctx, span := otel.Tracer("transaction-service").Start(c.Request.Context(), "GetTransaction")
	defer span.End()

	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}
	span.SetAttributes(attribute.Int("transaction.id", id))

	transaction, err := h.svc.GetTransaction(ctx, id, p.UserID, p.IsAdmin())
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// UpdateStatus is the admin order-level fulfillment update.
func (h *TransactionHandler) UpdateStatus(c *gin.Context) {
	ctx, span := otel.Tracer("transaction-service").Start(c.Request.Context(), "UpdateTransactionStatus")
	defer span.End()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"kind":    "validation",
			"details": err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.Int("transaction.id", id),
		attribute.String("status", req.Status),
	)

	transaction, err := h.svc.UpdateStatus(ctx, id, models.FulfillmentStatus(req.Status))
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Transaction status updated",
		"transaction": transaction,
	})
}

// UpdateLineStatus is the admin bulk payment-status update over every
// detail line of the transaction.
func (h *TransactionHandler) UpdateLineStatus(c *gin.Context) {
	ctx, span := otel.Tracer("transaction-service").Start(c.Request.Context(), "UpdateLineStatus")
	defer span.End()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var req models.UpdateLineStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"kind":    "validation",
			"details": err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.Int("transaction.id", id),
		attribute.String("status", req.Status),
	)

	transaction, err := h.svc.UpdateLineStatus(ctx, id, models.PaymentStatus(req.Status))
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Detail transaction status updated",
		"transaction": transaction,
	})
}

func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	ctx, span := otel.Tracer("transaction-service").Start(c.Request.Context(), "CancelTransaction")
	defer span.End()

	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}
	span.SetAttributes(attribute.Int("transaction.id", id))

	transaction, err := h.svc.CancelTransaction(ctx, id, p.UserID)
	if err != nil {
		span.RecordError(err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Transaction cancelled successfully",
		"transaction": transaction,
	})
}

// respondError maps the service error taxonomy onto HTTP responses. Every
// body carries a machine-checkable kind next to the human message.
func (h *TransactionHandler) respondError(c *gin.Context, err error) {
	var stockErr *service.InsufficientStockError
	var cancelErr *service.CannotCancelError
	var transitionErr *service.InvalidTransitionError

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "product_not_found"})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   stockErr.Error(),
			"kind":    "insufficient_stock",
			"product": stockErr.Product,
		})
	case errors.Is(err, service.ErrEmptyOrder):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": "empty_order"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized", "kind": "unauthorized"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found", "kind": "not_found"})
	case errors.As(err, &cancelErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cancelErr.Error(), "kind": "cannot_cancel"})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error(), "kind": "invalid_transition"})
	case service.IsRetryable(err):
		h.logger.Error("Transient failure", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Service temporarily unavailable",
			"kind":      "transient",
			"retryable": true,
		})
	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "kind": "internal"})
	}
}
