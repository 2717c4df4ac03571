package models

import "time"

type Product struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Stock      int       `json:"stock"`
	CategoryID int       `json:"category_id"`
	StoreID    int       `json:"store_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SalesReportRow is one product's aggregate in the live sales report.
type SalesReportRow struct {
	ProductID     int     `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalQuantity int     `json:"total_quantity"`
	TotalSales    float64 `json:"total_sales"`
}

// SalesReport is a point-in-time daily snapshot written by the report
// generator, decoupled from the live per-store view.
type SalesReport struct {
	ID                int       `json:"id"`
	ReportDate        string    `json:"report_date"`
	TotalTransactions int       `json:"total_transactions"`
	TotalSales        float64   `json:"total_sales"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
