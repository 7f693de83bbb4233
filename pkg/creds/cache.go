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
package creds

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/uswitch/oidc-creds/pkg/future"
	"github.com/uswitch/oidc-creds/pkg/oidc"
)

const DefaultPurgeInterval = 1 * time.Minute

// Cache serves credentials from memory until they come within the refresh
// margin of expiry, then exchanges again. The identity token comes from its
// own cache with its own margin: a token refresh never invalidates cached
// credentials, and credentials are refreshed on their own expiry alone.
type Cache struct {
	exchanger Exchanger
	tokens    oidc.TokenFetcher
	cache     *cache.Cache
	key       string
	margin    time.Duration
	expiring  chan *Credentials

	mu       sync.Mutex
	inflight *future.Future

	now func() time.Time
}

func NewCache(exchanger Exchanger, tokens oidc.TokenFetcher, key string, margin time.Duration) *Cache {
	c := &Cache{
		exchanger: exchanger,
		tokens:    tokens,
		key:       key,
		margin:    margin,
		expiring:  make(chan *Credentials, 1),
		now:       time.Now,
	}
	c.cache = cache.New(cache.NoExpiration, DefaultPurgeInterval)
	c.cache.OnEvicted(c.evicted)
	return c
}

// Expiring signals when cached credentials have reached their refresh
// margin. Daemon loops use it to refresh ahead of expiry.
func (c *Cache) Expiring() chan *Credentials {
	return c.expiring
}

func (c *Cache) evicted(key string, item interface{}) {
	credentials, ok := item.(*Credentials)
	if !ok {
		return
	}
	select {
	case c.expiring <- credentials:
		log.WithFields(credentials.LogFields()).Infof("notified credentials expire soon")
		return
	default:
		return
	}
}

// Credentials returns the cached credentials while they are outside the
// refresh margin and otherwise performs a fresh exchange. Concurrent
// callers share a single in-flight exchange, and a failed exchange leaves
// nothing cached.
func (c *Cache) Credentials(ctx context.Context) (*Credentials, error) {
	if item, found := c.cache.Get(c.key); found {
		credentials := item.(*Credentials)
		if credentials.FreshAt(c.now(), c.margin) {
			cacheHit.Inc()
			return credentials, nil
		}
	}
	cacheMiss.Inc()

	val, err := c.refresh(ctx).Get(ctx)
	if err != nil {
		return nil, err
	}
	return val.(*Credentials), nil
}

// refresh returns the in-flight exchange, starting one if none is running.
func (c *Cache) refresh(ctx context.Context) *future.Future {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		return c.inflight
	}

	f := future.New(func() (interface{}, error) {
		credentials, err := c.exchange(ctx)
		if err == nil {
			c.store(credentials)
		}

		c.mu.Lock()
		c.inflight = nil
		c.mu.Unlock()

		if err != nil {
			log.Errorf("error exchanging token for credentials: %s", err.Error())
			return nil, err
		}

		log.WithFields(credentials.LogFields()).Infof("requested new credentials")
		return credentials, nil
	})
	c.inflight = f
	return f
}

func (c *Cache) exchange(ctx context.Context) (*Credentials, error) {
	token, err := c.tokens.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return c.exchanger.Exchange(ctx, token.Raw)
}

func (c *Cache) store(credentials *Credentials) {
	ttl := credentials.Expiration.Sub(c.now()) - c.margin
	if ttl <= 0 {
		return
	}
	c.cache.Set(c.key, credentials, ttl)
}
