// Copyright 2022 uSwitch
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oidc

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"github.com/uswitch/oidc-creds/pkg/future"
)

const DefaultPurgeInterval = 1 * time.Minute

// TokenCache wraps a TokenFetcher and serves each token from memory until
// it comes within the refresh margin of expiry. Concurrent callers share a
// single in-flight fetch. TokenCache implements TokenFetcher itself so
// callers cannot tell it apart from the endpoint.
type TokenCache struct {
	fetcher  TokenFetcher
	cache    *cache.Cache
	key      string
	margin   time.Duration
	expiring chan *Token

	mu       sync.Mutex
	inflight *future.Future

	now func() time.Time
}

func NewTokenCache(fetcher TokenFetcher, key string, margin time.Duration) *TokenCache {
	c := &TokenCache{
		fetcher:  fetcher,
		key:      key,
		margin:   margin,
		expiring: make(chan *Token, 1),
		now:      time.Now,
	}
	c.cache = cache.New(cache.NoExpiration, DefaultPurgeInterval)
	c.cache.OnEvicted(c.evicted)
	return c
}

// Expiring signals when a cached token has reached its refresh margin.
// Daemon loops use it to refresh ahead of expiry.
func (c *TokenCache) Expiring() chan *Token {
	return c.expiring
}

func (c *TokenCache) evicted(key string, item interface{}) {
	token, ok := item.(*Token)
	if !ok {
		return
	}
	select {
	case c.expiring <- token:
		log.WithFields(token.LogFields()).Infof("notified token expires soon")
		return
	default:
		return
	}
}

// Fetch returns the cached token while it is outside the refresh margin and
// otherwise asks the underlying fetcher for a new one. A failed fetch
// leaves nothing cached, so the next call fetches again.
func (c *TokenCache) Fetch(ctx context.Context) (*Token, error) {
	if item, found := c.cache.Get(c.key); found {
		token := item.(*Token)
		if token.FreshAt(c.now(), c.margin) {
			cacheHit.Inc()
			return token, nil
		}
	}
	cacheMiss.Inc()

	val, err := c.refresh(ctx).Get(ctx)
	if err != nil {
		return nil, err
	}
	return val.(*Token), nil
}

// refresh returns the in-flight fetch, starting one if none is running.
func (c *TokenCache) refresh(ctx context.Context) *future.Future {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		return c.inflight
	}

	f := future.New(func() (interface{}, error) {
		token, err := c.fetcher.Fetch(ctx)
		if err == nil {
			c.store(token)
		}

		c.mu.Lock()
		c.inflight = nil
		c.mu.Unlock()

		if err != nil {
			log.Errorf("error fetching identity token: %s", err.Error())
			return nil, err
		}

		log.WithFields(token.LogFields()).Infof("fetched new identity token")
		return token, nil
	})
	c.inflight = f
	return f
}

func (c *TokenCache) store(token *Token) {
	ttl := token.ExpiresAt.Sub(c.now()) - c.margin
	if ttl <= 0 {
		// shorter-lived than the margin: never fresh, not worth caching
		return
	}
	c.cache.Set(c.key, token, ttl)
}
