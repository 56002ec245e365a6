package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"realtime-canvas/internal/model"
)

// RedisClient wraps the Redis client for the operation feed
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &RedisClient{client: client}, nil
}

// Client returns the underlying go-redis client (shared with the presence publisher)
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func feedKey(instanceID string) string {
	return "canvas:" + instanceID + ":operations"
}

// AppendOperation pushes an applied operation and trims the list to the last maxLen entries
func (r *RedisClient) AppendOperation(ctx context.Context, instanceID string, op model.DrawOperation, maxLen int) error {
	key := feedKey(instanceID)

	data, err := json.Marshal(op)
	if err != nil {
		return err
	}

	// RPUSH + LTRIM in one round trip so the list never exceeds maxLen
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-maxLen), -1)
		pipe.Expire(ctx, key, 24*time.Hour)
		return nil
	})
	if err != nil {
		log.Printf("[Redis] Failed to append operation %d: %v", op.Sequence, err)
	}
	return err
}

// GetRecentOperations retrieves the last N operations (0 = all)
func (r *RedisClient) GetRecentOperations(ctx context.Context, instanceID string, count int64) ([]model.DrawOperation, error) {
	start := int64(0)
	if count > 0 {
		start = -count
	}

	results, err := r.client.LRange(ctx, feedKey(instanceID), start, -1).Result()
	if err != nil {
		return nil, err
	}

	ops := make([]model.DrawOperation, 0, len(results))
	for _, data := range results {
		var op model.DrawOperation
		if err := json.Unmarshal([]byte(data), &op); err != nil {
			continue
		}
		ops = append(ops, op)
	}

	return ops, nil
}

// GetOperationCount returns the length of the mirrored feed
func (r *RedisClient) GetOperationCount(ctx context.Context, instanceID string) (int64, error) {
	return r.client.LLen(ctx, feedKey(instanceID)).Result()
}

// ClearOperations removes the mirrored feed
func (r *RedisClient) ClearOperations(ctx context.Context, instanceID string) error {
	return r.client.Del(ctx, feedKey(instanceID)).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Health checks if Redis is healthy
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
