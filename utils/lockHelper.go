package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bsm/redislock"
)

// fallbackStockMutex serializes postings when Redis is not configured
// (single-instance deployments, tests).
var fallbackStockMutex sync.Mutex

// ObtainStockLock takes the lock guarding the stock ledger and returns a
// release func. The lock must be held for the whole read-resolve-append
// sequence of a posting; two concurrent postings that both read the same
// stock would otherwise overcommit it.
//
// Uses redislock when Redis is connected, an in-process mutex otherwise.
func ObtainStockLock(ctx context.Context, lockKey string, moduleName string, functionName string) (release func(), err error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		fallbackStockMutex.Lock()
		return fallbackStockMutex.Unlock, nil
	}

	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain stock lock", lockKey, err)
		return nil, errors.New("could not obtain stock lock")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining stock lock", lockKey, err)
		return nil, err
	}

	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
