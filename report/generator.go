package report

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// Generator writes the daily point-in-time snapshot: yesterday's paid
// transaction count and grand-total sum, keyed by report date.
type Generator struct {
	db     *sql.DB
	hour   int
	logger *zap.Logger
}

func NewGenerator(db *sql.DB, hour int, logger *zap.Logger) *Generator {
	return &Generator{db: db, hour: hour, logger: logger}
}

// Run blocks, generating a snapshot once per day at the configured hour,
// until the context is cancelled.
func (g *Generator) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(time.Until(g.nextRun(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		yesterday := time.Now().AddDate(0, 0, -1)
		if err := g.Generate(ctx, yesterday); err != nil {
			g.logger.Error("Failed to generate sales report", zap.Error(err))
		}
	}
}

func (g *Generator) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), g.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Generate upserts the snapshot row for the given day. Re-running for the
// same date overwrites the previous numbers.
func (g *Generator) Generate(ctx context.Context, day time.Time) error {
	date := day.Format("2006-01-02")

	var totalTransactions int
	var totalSales float64
	err := g.db.QueryRowContext(ctx,
		`SELECT COUNT(id), COALESCE(SUM(grand_total), 0)
		 FROM transactions
		 WHERE created_at::date = $1 AND status = 'paid'`,
		date,
	).Scan(&totalTransactions, &totalSales)
	if err != nil {
		return err
	}

	_, err = g.db.ExecContext(ctx,
		`INSERT INTO sales_reports (report_date, total_transactions, total_sales)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (report_date) DO UPDATE
		 SET total_transactions = EXCLUDED.total_transactions,
		     total_sales = EXCLUDED.total_sales,
		     updated_at = CURRENT_TIMESTAMP`,
		date, totalTransactions, totalSales,
	)
	if err != nil {
		return err
	}

	g.logger.Info("Sales report generated",
		zap.String("report_date", date),
		zap.Int("total_transactions", totalTransactions),
		zap.Float64("total_sales", totalSales))
	return nil
}
