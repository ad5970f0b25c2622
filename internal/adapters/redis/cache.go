package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// AcquireRegistrationLock takes a short-lived lock on a (user, seminar)
// pair. It narrows the window in which two submissions of the same pair can
// both pass the duplicate check; the unique index remains the backstop.
func (c *Cache) AcquireRegistrationLock(ctx context.Context, userID, seminarID string, ttl time.Duration) (bool, error) {
	key := "reglock:" + userID + ":" + seminarID
	res := c.client.SetNX(ctx, key, "1", ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseRegistrationLock(ctx context.Context, userID, seminarID string) error {
	return c.client.Del(ctx, "reglock:"+userID+":"+seminarID).Err()
}
