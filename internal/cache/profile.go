// Package cache keeps a best-effort key-value snapshot of the last
// loaded profile fields. It pre-populates views before the
// authoritative lookup completes and is never treated as a source of
// truth; every failure is logged and swallowed.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reliefline/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const profileTTL = 7 * 24 * time.Hour

func Connect(ctx context.Context, config *types.Config) (*redis.Client, error) {

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

type ProfileCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewProfileCache(client *redis.Client, logger *logrus.Logger) *ProfileCache {
	return &ProfileCache{client: client, logger: logger}
}

func profileKey(userID string) string {
	return fmt.Sprintf("reliefline:profile:%s", userID)
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (*types.Identity, bool) {

	data, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("profile cache read failed")
		}
		return nil, false
	}

	var identity types.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		c.logger.WithError(err).Warn("profile cache entry corrupt, dropping")
		_ = c.client.Del(ctx, profileKey(userID)).Err()
		return nil, false
	}

	return &identity, true
}

func (c *ProfileCache) Put(ctx context.Context, identity types.Identity) {

	data, err := json.Marshal(identity)
	if err != nil {
		c.logger.WithError(err).Warn("profile cache marshal failed")
		return
	}

	if err := c.client.Set(ctx, profileKey(identity.UserID), data, profileTTL).Err(); err != nil {
		c.logger.WithError(err).Debug("profile cache write failed")
	}
}
