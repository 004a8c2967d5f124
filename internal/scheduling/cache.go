package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/littleoak-health/intake-platform/pkg/logging"
)

// SlotCache memoizes slot computations in redis. Entries are only a hint,
// since the booking path re-checks under lock; a short TTL plus a per-therapist
// generation counter keeps staleness bounded without coordinated deletes.
// Mutating operations bump the counter, orphaning every cached range for that
// therapist at once.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewSlotCache creates a cache; a nil client disables it.
func NewSlotCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *SlotCache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SlotCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached slots for the query, if present.
func (c *SlotCache) Get(ctx context.Context, therapistID uuid.UUID, startDate, endDate time.Time, tz string) ([]Slot, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key, err := c.entryKey(ctx, therapistID, startDate, endDate, tz)
	if err != nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("slot cache read failed", "error", err, "therapist_id", therapistID)
		}
		return nil, false
	}

	var slots []Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logger.Warn("slot cache entry corrupt", "error", err, "key", key)
		return nil, false
	}
	return slots, true
}

// Set stores the slots for the query.
func (c *SlotCache) Set(ctx context.Context, therapistID uuid.UUID, startDate, endDate time.Time, tz string, slots []Slot) {
	if c == nil || c.client == nil {
		return
	}
	key, err := c.entryKey(ctx, therapistID, startDate, endDate, tz)
	if err != nil {
		return
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", "error", err, "therapist_id", therapistID)
	}
}

// Invalidate bumps the therapist's generation counter, detaching all cached
// ranges for that therapist.
func (c *SlotCache) Invalidate(ctx context.Context, therapistID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, generationKey(therapistID)).Err(); err != nil {
		return fmt.Errorf("scheduling: bump slot generation: %w", err)
	}
	return nil
}

func (c *SlotCache) entryKey(ctx context.Context, therapistID uuid.UUID, startDate, endDate time.Time, tz string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(therapistID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("slots:%s:%d:%s:%s:%s",
		therapistID, gen,
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), tz,
	), nil
}

func generationKey(therapistID uuid.UUID) string {
	return "slots:gen:" + therapistID.String()
}
