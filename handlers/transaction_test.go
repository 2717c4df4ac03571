package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"transaction-svc/catalog"
	"transaction-svc/middleware"
	"transaction-svc/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func setupHandlerTest(t *testing.T, p middleware.Principal) (*gin.Engine, sqlmock.Sqlmock, *sql.DB) {
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t)
	cat := catalog.NewPostgresCatalog(db, nil, logger)
	svc := service.NewTransactionService(db, cat, nil, "transaction_events", logger)
	handler := NewTransactionHandler(svc, logger)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("principal", p)
		c.Next()
	})
	router.POST("/transactions", handler.CreateTransaction)
	router.GET("/transactions", handler.ListTransactions)
	router.GET("/transactions/:id", handler.GetTransaction)
	router.PUT("/transactions/:id/status", handler.UpdateStatus)
	router.PUT("/transactions/:id/lines/status", handler.UpdateLineStatus)
	router.POST("/transactions/:id/cancel", handler.CancelTransaction)
	return router, mock, db
}

func customerPrincipal() middleware.Principal {
	return middleware.Principal{UserID: 7, Role: middleware.RoleCustomer}
}

func postJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateTransactionHandler_Success(t *testing.T) {
	router, mock, db := setupHandlerTest(t, customerPrincipal())
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM products WHERE id = \\$1 FOR UPDATE").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "category_id", "store_id", "created_at", "updated_at"}).
			AddRow(1, "A", 10000.0, 5, 1, 1, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO detail_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectExec("UPDATE products SET stock = stock -").
		WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := map[string]any{
		"name":           "John Doe",
		"email":          "john@example.com",
		"phone":          "08123456789",
		"address":        "Jl. Merdeka No. 1",
		"payment_method": "cash",
		"products":       []map[string]any{{"product_id": 1, "quantity": 2}},
	}
	w := postJSON(router, "POST", "/transactions", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	transaction, ok := response["transaction"].(map[string]any)
	if !ok {
		t.Fatalf("Expected transaction object in response, got %v", response)
	}
	if transaction["grand_total"].(float64) != 20000 {
		t.Errorf("Expected grand total 20000, got %v", transaction["grand_total"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCreateTransactionHandler_ValidationError(t *testing.T) {
	router, _, db := setupHandlerTest(t, customerPrincipal())
	defer db.Close()

	// Missing products, unknown payment method.
	body := map[string]any{
		"name":           "John Doe",
		"email":          "john@example.com",
		"phone":          "08123456789",
		"address":        "Jl. Merdeka No. 1",
		"payment_method": "barter",
	}
	w := postJSON(router, "POST", "/transactions", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["kind"] != "validation" {
		t.Errorf("Expected kind validation, got %v", response["kind"])
	}
}

func TestCreateTransactionHandler_InsufficientStock(t *testing.T) {
	router, mock, db := setupHandlerTest(t, customerPrincipal())
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM products WHERE id = \\$1 FOR UPDATE").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "category_id", "store_id", "created_at", "updated_at"}).
			AddRow(1, "A", 10000.0, 1, 1, 1, time.Now(), time.Now()))
	mock.ExpectRollback()

	body := map[string]any{
		"name":           "John Doe",
		"email":          "john@example.com",
		"phone":          "08123456789",
		"address":        "Jl. Merdeka No. 1",
		"payment_method": "cash",
		"products":       []map[string]any{{"product_id": 1, "quantity": 2}},
	}
	w := postJSON(router, "POST", "/transactions", body)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["kind"] != "insufficient_stock" {
		t.Errorf("Expected kind insufficient_stock, got %v", response["kind"])
	}
	if response["product"] != "A" {
		t.Errorf("Expected offending product A, got %v", response["product"])
	}
}

func TestGetTransactionHandler_NotFound(t *testing.T) {
	router, mock, db := setupHandlerTest(t, customerPrincipal())
	defer db.Close()

	mock.ExpectQuery("FROM transactions WHERE id = \\$1").
		WithArgs(99).WillReturnError(sql.ErrNoRows)

	req, _ := http.NewRequest("GET", "/transactions/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["kind"] != "not_found" {
		t.Errorf("Expected kind not_found, got %v", response["kind"])
	}
}

func TestGetTransactionHandler_ForbiddenForOtherCustomer(t *testing.T) {
	router, mock, db := setupHandlerTest(t, customerPrincipal())
	defer db.Close()

	mock.ExpectQuery("FROM transactions WHERE id = \\$1").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "name", "email", "phone", "address", "payment_method", "grand_total", "status", "created_at", "updated_at"}).
			AddRow(42, 9, "Jane", "jane@example.com", "08100000000", "Jl. Sudirman", "cash", 25000.0, "pending", time.Now(), time.Now()))

	req, _ := http.NewRequest("GET", "/transactions/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403, got %d", w.Code)
	}
}

func TestUpdateStatusHandler_InvalidTransition(t *testing.T) {
	router, mock, db := setupHandlerTest(t, middleware.Principal{UserID: 1, Role: middleware.RoleAdmin, StoreID: 1})
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM transactions WHERE id = \\$1 FOR UPDATE").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectRollback()

	w := postJSON(router, "PUT", "/transactions/42/status", map[string]any{"status": "shipped"})

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["kind"] != "invalid_transition" {
		t.Errorf("Expected kind invalid_transition, got %v", response["kind"])
	}
}

func TestUpdateStatusHandler_RejectsUnknownStatus(t *testing.T) {
	router, _, db := setupHandlerTest(t, middleware.Principal{UserID: 1, Role: middleware.RoleAdmin})
	defer db.Close()

	w := postJSON(router, "PUT", "/transactions/42/status", map[string]any{"status": "teleported"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCancelTransactionHandler_AlreadyProcessed(t *testing.T) {
	router, mock, db := setupHandlerTest(t, customerPrincipal())
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT customer_id, status FROM transactions WHERE id = \\$1 FOR UPDATE").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "status"}).AddRow(7, "shipped"))
	mock.ExpectRollback()

	w := postJSON(router, "POST", "/transactions/42/cancel", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["kind"] != "cannot_cancel" {
		t.Errorf("Expected kind cannot_cancel, got %v", response["kind"])
	}
}

func TestListTransactionsHandler_Transient(t *testing.T) {
	router, mock, db := setupHandlerTest(t, customerPrincipal())
	defer db.Close()

	mock.ExpectQuery("FROM transactions WHERE customer_id = \\$1").
		WithArgs(7).WillReturnError(errors.New("connection refused"))

	req, _ := http.NewRequest("GET", "/transactions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d: %s", w.Code, w.Body.String())
	}
	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["retryable"] != true {
		t.Errorf("Expected retryable true, got %v", response["retryable"])
	}
}
