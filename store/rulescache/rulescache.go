/*
Package rulescache wraps a store.RulesStore with a Redis cache.

PURPOSE:
  Pricing rules are read on every quote and every ledger comparison, but
  written only when administration tunes the tariff. A cache-aside layer
  in front of the backing store absorbs the read load:

    LatestRules: Redis hit -> parse and return
                 Redis miss -> backing store -> SET with TTL
    SaveRules:   delegate, then DEL the cached latest

  The cached value is one JSON envelope holding version and config
  together under a single key, so a hit always carries the version it was
  stored with. Coefficients stay decimal-as-string end to end, so a cache
  round trip cannot distort them.

FAILURE MODE:
  Redis being down degrades to the backing store; cache errors are never
  surfaced to callers.

SEE ALSO:
  - store: RulesStore interface
  - pricing/factory.go: JSON codec
*/
package rulescache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/previsora/billing-engine/pricing"
	"github.com/previsora/billing-engine/store"
)

const (
	latestKey  = "pricing:rules:latest"
	defaultTTL = 5 * time.Minute
)

// cachedRules is the envelope stored under latestKey. Version travels with
// the config in one value; a partial expiry cannot strip it.
type cachedRules struct {
	Version int               `json:"version"`
	Config  pricing.RulesJSON `json:"config"`
}

func encodeCached(rules pricing.Rules) ([]byte, error) {
	return json.Marshal(cachedRules{Version: rules.Version, Config: pricing.ToJSON(rules)})
}

func decodeCached(data []byte) (pricing.Rules, error) {
	var env cachedRules
	if err := json.Unmarshal(data, &env); err != nil {
		return pricing.Rules{}, err
	}
	rules, err := pricing.FromJSON(env.Config)
	if err != nil {
		return pricing.Rules{}, err
	}
	rules.Version = env.Version
	return rules, nil
}

// Cache is a read-through rules store backed by Redis.
type Cache struct {
	inner  store.RulesStore
	client *redis.Client
	ttl    time.Duration
}

var _ store.RulesStore = (*Cache)(nil)

// New wraps inner with a Redis client for the given address.
func New(inner store.RulesStore, addr string) *Cache {
	return &Cache{
		inner:  inner,
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    defaultTTL,
	}
}

func (c *Cache) SaveRules(ctx context.Context, rules pricing.Rules) (int, error) {
	version, err := c.inner.SaveRules(ctx, rules)
	if err != nil {
		return 0, err
	}
	// Best effort: drop the stale latest.
	c.client.Del(ctx, latestKey)
	return version, nil
}

func (c *Cache) LatestRules(ctx context.Context) (pricing.Rules, error) {
	if cached, err := c.client.Get(ctx, latestKey).Result(); err == nil {
		if rules, perr := decodeCached([]byte(cached)); perr == nil {
			return rules, nil
		}
	}

	rules, err := c.inner.LatestRules(ctx)
	if err != nil {
		return pricing.Rules{}, err
	}

	if data, merr := encodeCached(rules); merr == nil {
		c.client.Set(ctx, latestKey, string(data), c.ttl)
	}
	return rules, nil
}

// RulesByVersion is not cached: historical versions are cold reads.
func (c *Cache) RulesByVersion(ctx context.Context, version int) (pricing.Rules, error) {
	return c.inner.RulesByVersion(ctx, version)
}
