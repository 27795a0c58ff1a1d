package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cms_mirror:webhook:"

// Deduper remembers verified deliveries so a replayed signature is applied
// once within the replay window.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

// Claim records signature and reports whether this is its first delivery.
func (d *Deduper) Claim(ctx context.Context, signature string) (bool, error) {
	ok, err := d.client.SetNX(ctx, keyPrefix+signature, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}
	return ok, nil
}

// Release forgets signature so a retried delivery is processed again.
func (d *Deduper) Release(ctx context.Context, signature string) error {
	if err := d.client.Del(ctx, keyPrefix+signature).Err(); err != nil {
		return fmt.Errorf("release delivery: %w", err)
	}
	return nil
}
