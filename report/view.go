package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"transaction-svc/cache"
	"transaction-svc/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// View is the read-only sales aggregation over committed detail lines,
// recomputed per call with a short-lived cache in front.
type View struct {
	db     *sql.DB
	rdb    *redis.Client
	logger *zap.Logger
}

func NewView(db *sql.DB, rdb *redis.Client, logger *zap.Logger) *View {
	return &View{db: db, rdb: rdb, logger: logger}
}

// StoreSales groups every detail line whose product belongs to the store
// by product, summing quantities and quantity x current price.
func (v *View) StoreSales(ctx context.Context, storeID int) ([]models.SalesReportRow, error) {
	if v.rdb != nil {
		if data, err := cache.GetSalesReport(ctx, v.rdb, storeID); err == nil {
			var report []models.SalesReportRow
			if err := json.Unmarshal(data, &report); err == nil {
				return report, nil
			}
		}
	}

	rows, err := v.db.QueryContext(ctx,
		`SELECT p.id, p.name, SUM(d.quantity) AS total_quantity, SUM(d.quantity * p.price) AS total_sales
		 FROM detail_transactions d
		 JOIN products p ON p.id = d.product_id
		 WHERE p.store_id = $1
		 GROUP BY p.id, p.name
		 ORDER BY p.id`,
		storeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := make([]models.SalesReportRow, 0)
	for rows.Next() {
		var row models.SalesReportRow
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.TotalQuantity, &row.TotalSales); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if v.rdb != nil {
		if err := cache.SetSalesReport(ctx, v.rdb, storeID, report, time.Minute); err != nil {
			v.logger.Warn("Failed to cache sales report", zap.Int("store_id", storeID), zap.Error(err))
		}
	}
	return report, nil
}
