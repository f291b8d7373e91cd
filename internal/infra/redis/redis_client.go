// File: internal/infra/redis/redis_client.go
package redis

import (
	"context"

	"ai-coding-tasks/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client wraps the go-redis client behind the small surface the rest
// of the service needs.
type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Close() error { return c.cli.Close() }
