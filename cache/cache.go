package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/payrail-labs/payrail/schema"
)

// RequirementCache holds issued payment requirements keyed by nonce until
// they expire. bigcache's global TTL doubles as the requirement TTL, so a
// miss means the requirement was never issued or has already lapsed.
type RequirementCache struct {
	cache *bigcache.BigCache
}

func NewRequirementCache(requirementTTL time.Duration) (*RequirementCache, error) {
	if requirementTTL <= 0 {
		requirementTTL = schema.DefaultRequirementTTL
	}
	c, err := bigcache.New(context.Background(), bigcache.DefaultConfig(requirementTTL))
	if err != nil {
		return nil, err
	}
	return &RequirementCache{cache: c}, nil
}

func key(nonce string) string {
	return strings.ToLower(strings.TrimPrefix(nonce, "0x"))
}

func (rc *RequirementCache) Put(nonce string, req schema.PaymentRequirement) error {
	by, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return rc.cache.Set(key(nonce), by)
}

func (rc *RequirementCache) Get(nonce string) (schema.PaymentRequirement, error) {
	req := schema.PaymentRequirement{}
	by, err := rc.cache.Get(key(nonce))
	if err != nil {
		return req, schema.ErrNotExist
	}
	if err := json.Unmarshal(by, &req); err != nil {
		return req, err
	}
	return req, nil
}

func (rc *RequirementCache) Len() int {
	return rc.cache.Len()
}

func (rc *RequirementCache) Close() error {
	return rc.cache.Close()
}
