package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPingAttempts = 3
	redisPingTimeout  = 3 * time.Second
)

// ConnectRedis opens a client and waits for the server to answer a PING.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  redisPingTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	var err error
	for attempt := 1; attempt <= redisPingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			log.Printf("Connected to Redis at %s (db %d)", addr, db)
			return rdb, nil
		}
		log.Printf("Redis ping %d/%d failed: %v", attempt, redisPingAttempts, err)
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
}

// DisconnectRedis closes the client. A nil client is a no-op.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	log.Println("Redis connection closed.")
	return nil
}
