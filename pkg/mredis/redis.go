// Package mredis wraps a go-redis client with the connect-on-demand
// lifecycle used throughout the service's repositories.
package mredis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/walletledger/service/pkg/mlog"
)

// Connection is a lazily-connected handle to the Cache/Lock Store (C).
type Connection struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
	Client    *redis.Client
	Connected bool
	Logger    mlog.Logger
}

// Connect opens the connection and pings it.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to redis...")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Password: c.Password,
		DB:       c.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		c.Logger.Errorf("redis ping failed: %v", err)
		return err
	}

	c.Logger.Info("connected to redis")
	c.Connected = true
	c.Client = client

	return nil
}

// GetClient returns the client, connecting first if necessary.
func (c *Connection) GetClient(ctx context.Context) (*redis.Client, error) {
	if c.Client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.Client, nil
}

// Key namespaces a logical key under the configured prefix.
func (c *Connection) Key(parts ...string) string {
	key := c.KeyPrefix

	for _, p := range parts {
		key += p
	}

	return key
}
