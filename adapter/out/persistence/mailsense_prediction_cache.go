package persistence

import (
	"context"
	"time"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/cache"
)

// PredictionCacheAdapter stores classifier predictions in Redis. Keys
// arrive pre-hashed from the classifier, so the adapter only handles
// JSON round-tripping and TTLs.
type PredictionCacheAdapter struct {
	cache *cache.RedisCache
}

// NewPredictionCacheAdapter creates a prediction cache over Redis.
func NewPredictionCacheAdapter(redisCache *cache.RedisCache) *PredictionCacheAdapter {
	return &PredictionCacheAdapter{cache: redisCache}
}

// Get returns the cached prediction for key. found is false on a miss.
func (a *PredictionCacheAdapter) Get(ctx context.Context, key string) (domain.Prediction, bool, error) {
	var prediction domain.Prediction
	found, err := a.cache.GetJSON(ctx, key, &prediction)
	if err != nil || !found {
		return domain.Prediction{}, false, err
	}
	return prediction, true, nil
}

// Set stores a prediction under key for the given TTL.
func (a *PredictionCacheAdapter) Set(ctx context.Context, key string, prediction domain.Prediction, ttl time.Duration) error {
	return a.cache.SetJSON(ctx, key, prediction, ttl)
}

var _ out.PredictionCache = (*PredictionCacheAdapter)(nil)
