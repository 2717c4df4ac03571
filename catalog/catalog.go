package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"transaction-svc/cache"
	"transaction-svc/circuitbreaker"
	"transaction-svc/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Catalog is the product/stock collaborator the transaction engine talks
// to. The ForUpdate/Decrement pair is transaction-scoped so the stock
// check-and-decrement happens under the row lock of the enclosing order
// transaction and rolls back with it.
type Catalog interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	GetProductForUpdate(ctx context.Context, tx *sql.Tx, id int) (*models.Product, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, id, quantity int) error
	InvalidateProducts(ctx context.Context, ids []int)
}

type PostgresCatalog struct {
	db      *sql.DB
	rdb     *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewPostgresCatalog(db *sql.DB, rdb *redis.Client, logger *zap.Logger) *PostgresCatalog {
	return &PostgresCatalog{
		db:      db,
		rdb:     rdb,
		breaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		logger:  logger,
	}
}

const productColumns = "id, name, price, stock, category_id, store_id, created_at, updated_at"

// GetProduct serves plain reads through the Redis cache with the database
// behind a circuit breaker.
func (c *PostgresCatalog) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	if c.rdb != nil {
		if data, err := cache.GetProduct(ctx, c.rdb, id); err == nil {
			var product models.Product
			if err := json.Unmarshal(data, &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	err := c.breaker.Execute(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			"SELECT "+productColumns+" FROM products WHERE id = $1", id,
		).Scan(&product.ID, &product.Name, &product.Price, &product.Stock,
			&product.CategoryID, &product.StoreID, &product.CreatedAt, &product.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if c.rdb != nil {
		if err := cache.SetProduct(ctx, c.rdb, id, product, 5*time.Minute); err != nil {
			c.logger.Warn("Failed to cache product", zap.Int("product_id", id), zap.Error(err))
		}
	}
	return &product, nil
}

// GetProductForUpdate locks the product row for the rest of the enclosing
// transaction so two concurrent orders cannot both pass a stock check
// against the same quantity.
func (c *PostgresCatalog) GetProductForUpdate(ctx context.Context, tx *sql.Tx, id int) (*models.Product, error) {
	var product models.Product
	err := tx.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id,
	).Scan(&product.ID, &product.Name, &product.Price, &product.Stock,
		&product.CategoryID, &product.StoreID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// DecrementStock takes quantity out of the product's stock inside tx. The
// stock >= quantity guard in the statement backs up the caller's check; a
// zero row count means the stock moved under us.
func (c *PostgresCatalog) DecrementStock(ctx context.Context, tx *sql.Tx, id, quantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND stock >= $2",
		id, quantity,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// InvalidateProducts drops cached entries once a stock change has
// committed. Failures only cost cache freshness, so they are logged and
// swallowed.
func (c *PostgresCatalog) InvalidateProducts(ctx context.Context, ids []int) {
	if c.rdb == nil || len(ids) == 0 {
		return
	}
	if err := cache.DeleteProducts(ctx, c.rdb, ids); err != nil {
		c.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}
