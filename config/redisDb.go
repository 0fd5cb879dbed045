package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedisWithRetry connects the shared redis client and lock client.
// Redis is optional: when REDIS_ADDRESS is unset the stock lock falls back to
// an in-process mutex (single-instance deployments and tests).
func ConnectRedisWithRetry() {
	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		log.Print("REDIS_ADDRESS not set; stock locking uses the in-process fallback")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	var attempt int
	for {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			rdb = client
			locker = redislock.New(client)
			log.Printf("connected to redis (attempt=%d)", attempt)
			return
		}
		if attempt >= 10 {
			log.Printf("giving up on redis after %d attempts: %v; stock locking uses the in-process fallback", attempt, err)
			return
		}
		log.Printf("failed to connect redis (attempt=%d): %v; retrying", attempt, err)
		time.Sleep(2 * time.Second)
	}
}
