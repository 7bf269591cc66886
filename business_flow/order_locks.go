package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/AronSwan/onlinestore-sub023/config"
	"github.com/redis/go-redis/v9"
)

const refundLockTTL = 30 * time.Second

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// acquireRefundLock serializes refund processing per order across workers
// with a SETNX lease. The caller must invoke the returned release func.
func acquireRefundLock(ctx context.Context, rc *redis.Client, cfg config.CacheConfig, orderID uint) (func(), error) {
	if rc == nil {
		// No cache configured: the version reservation inside the refund
		// transaction is the only serialization.
		return func() {}, nil
	}

	lockKey := redisKey(cfg, fmt.Sprintf("payment:refund_lock:%d", orderID))

	ok, err := rc.SetNX(ctx, lockKey, "1", refundLockTTL).Result()
	if err != nil {
		return nil, NewBusinessError("REFUND_LOCK_FAILED", "Failed to acquire refund lock", err)
	}
	if !ok {
		return nil, ErrRefundInProgress
	}

	return func() {
		_ = rc.Del(context.Background(), lockKey).Err()
	}, nil
}
