// internal/domain/membership/cache.go
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CachedRepository is a read-through redis cache in front of another repository.
// Cache failures fall back to the underlying repository.
type CachedRepository struct {
	Repository
	redisClient *redis.Client
	ttl         time.Duration
	log         logrus.FieldLogger
}

// NewCachedRepository wraps repo with a redis cache keyed by customer id
func NewCachedRepository(repo Repository, redisClient *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedRepository {
	return &CachedRepository{
		Repository:  repo,
		redisClient: redisClient,
		ttl:         ttl,
		log:         log,
	}
}

// FindByCustomerID serves from redis when possible
func (r *CachedRepository) FindByCustomerID(ctx context.Context, customerID string) (*Membership, error) {
	key := customerCacheKey(customerID)

	cached, err := r.redisClient.Get(ctx, key).Result()
	switch {
	case err == nil:
		var m Membership
		if jsonErr := json.Unmarshal([]byte(cached), &m); jsonErr == nil {
			return &m, nil
		}
		r.log.WithField("customer_id", customerID).Warn("Discarding unreadable cached membership")
	case !errors.Is(err, redis.Nil):
		r.log.WithError(err).Warn("Membership cache read failed")
	}

	m, err := r.Repository.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(m); err == nil {
		if err := r.redisClient.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.log.WithError(err).Warn("Membership cache write failed")
		}
	}

	return m, nil
}

// Save writes through and invalidates the customer's cached entry
func (r *CachedRepository) Save(ctx context.Context, m *Membership) error {
	if err := r.Repository.Save(ctx, m); err != nil {
		return err
	}

	if err := r.redisClient.Del(ctx, customerCacheKey(m.CustomerID)).Err(); err != nil {
		r.log.WithError(err).Warn("Membership cache invalidation failed")
	}
	return nil
}

func customerCacheKey(customerID string) string {
	return fmt.Sprintf("membership:customer:%s", customerID)
}
