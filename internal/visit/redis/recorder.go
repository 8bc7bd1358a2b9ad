package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

const keyPrefix = "continue_shopping:"

// Recorder implements visit.Recorder using one Redis hash per customer,
// keyed by store id.
type Recorder struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRecorder creates a new Redis-backed last visited page recorder.
func NewRecorder(client *redis.Client, ttl time.Duration) *Recorder {
	return &Recorder{
		client: client,
		ttl:    ttl,
	}
}

// RecordLastVisitedPage stores url for the customer in storeID and refreshes the TTL.
func (r *Recorder) RecordLastVisitedPage(ctx context.Context, customerID, url, storeID string) error {
	key := keyPrefix + customerID

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, storeID, url)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record last visited page: %w", err)
	}
	return nil
}

// LastVisitedPage returns the recorded page for the customer in storeID.
func (r *Recorder) LastVisitedPage(ctx context.Context, customerID, storeID string) (string, error) {
	url, err := r.client.HGet(ctx, keyPrefix+customerID, storeID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", apperrors.NotFound("last visited page", customerID)
		}
		return "", fmt.Errorf("redis get last visited page: %w", err)
	}
	return url, nil
}
