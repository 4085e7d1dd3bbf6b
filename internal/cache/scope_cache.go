package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/unclebandit/dcrm-backend/internal/config"
	"github.com/unclebandit/dcrm-backend/internal/model"
)

const keyPrefix = "scope:campaign:"

// ScopeCache stores campaign dropdown lists in Redis as JSON arrays.
type ScopeCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func Key(campaignID int, kind string) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, campaignID, kind)
}

// Get returns the cached list and whether it was present.
func (c *ScopeCache) Get(ctx context.Context, campaignID int, kind string) ([]model.Option, bool, error) {
	raw, err := c.Client.Get(ctx, Key(campaignID, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var opts []model.Option
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, false, fmt.Errorf("decode cached scope %s: %w", Key(campaignID, kind), err)
	}
	return opts, true, nil
}

func (c *ScopeCache) Set(ctx context.Context, campaignID int, kind string, opts []model.Option) error {
	if opts == nil {
		opts = []model.Option{}
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, Key(campaignID, kind), raw, c.TTL).Err()
}
