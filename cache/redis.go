package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"transaction-svc/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func InitRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

func GetProduct(ctx context.Context, rdb *redis.Client, id int) ([]byte, error) {
	return rdb.Get(ctx, productKey(id)).Bytes()
}

func SetProduct(ctx context.Context, rdb *redis.Client, id int, product interface{}, ttl time.Duration) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, productKey(id), data, ttl).Err()
}

// DeleteProducts drops cached entries after a stock change committed.
func DeleteProducts(ctx context.Context, rdb *redis.Client, ids []int) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return rdb.Del(ctx, keys...).Err()
}

func GetSalesReport(ctx context.Context, rdb *redis.Client, storeID int) ([]byte, error) {
	return rdb.Get(ctx, reportKey(storeID)).Bytes()
}

func SetSalesReport(ctx context.Context, rdb *redis.Client, storeID int, report interface{}, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, reportKey(storeID), data, ttl).Err()
}

func productKey(id int) string {
	return fmt.Sprintf("product:%d", id)
}

func reportKey(storeID int) string {
	return fmt.Sprintf("sales-report:%d", storeID)
}
