package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Init parses redisURL, connects and pings the server
func Init(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	log.Println("Successfully connected to Redis")
	return client, nil
}

// Close closes the client if there is one
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	log.Println("Closing Redis connection...")
	return client.Close()
}
