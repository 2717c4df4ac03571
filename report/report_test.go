package report

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap/zaptest"
)

func TestStoreSales(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	view := NewView(db, nil, zaptest.NewLogger(t))

	mock.ExpectQuery("FROM detail_transactions d").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total_quantity", "total_sales"}).
			AddRow(1, "A", 5, 50000.0).
			AddRow(2, "B", 2, 10000.0))

	report, err := view.StoreSales(context.Background(), 3)
	if err != nil {
		t.Fatalf("StoreSales returned error: %v", err)
	}
	if len(report) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(report))
	}
	if report[0].ProductName != "A" || report[0].TotalQuantity != 5 || report[0].TotalSales != 50000 {
		t.Errorf("Unexpected first row: %+v", report[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestStoreSales_EmptyStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	view := NewView(db, nil, zaptest.NewLogger(t))

	mock.ExpectQuery("FROM detail_transactions d").
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total_quantity", "total_sales"}))

	report, err := view.StoreSales(context.Background(), 8)
	if err != nil {
		t.Fatalf("StoreSales returned error: %v", err)
	}
	if report == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(report) != 0 {
		t.Errorf("Expected 0 rows, got %d", len(report))
	}
}

func TestGenerate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	gen := NewGenerator(db, 1, zaptest.NewLogger(t))
	day := time.Date(2025, 6, 14, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM transactions").
		WithArgs("2025-06-14").
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(12, 480000.0))
	mock.ExpectExec("INSERT INTO sales_reports").
		WithArgs("2025-06-14", 12, 480000.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := gen.Generate(context.Background(), day); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestNextRun(t *testing.T) {
	gen := NewGenerator(nil, 1, zaptest.NewLogger(t))

	// Before the configured hour: run today.
	now := time.Date(2025, 6, 14, 0, 30, 0, 0, time.UTC)
	next := gen.nextRun(now)
	if next.Day() != 14 || next.Hour() != 1 {
		t.Errorf("Expected next run today at 01:00, got %v", next)
	}

	// After the configured hour: run tomorrow.
	now = time.Date(2025, 6, 14, 2, 0, 0, 0, time.UTC)
	next = gen.nextRun(now)
	if next.Day() != 15 || next.Hour() != 1 {
		t.Errorf("Expected next run tomorrow at 01:00, got %v", next)
	}
}
