package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/littleoak-health/intake-platform/pkg/logging"
)

func newTestCache(t *testing.T) (*SlotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSlotCache(client, time.Minute, logging.Default()), mr
}

func TestSlotCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	therapistID := uuid.New()
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	if _, ok := cache.Get(context.Background(), therapistID, start, end, "UTC"); ok {
		t.Fatal("expected miss on empty cache")
	}

	slots := []Slot{{
		Start:       start.Add(9 * time.Hour),
		End:         start.Add(10 * time.Hour),
		TherapistID: therapistID,
	}}
	cache.Set(context.Background(), therapistID, start, end, "UTC", slots)

	got, ok := cache.Get(context.Background(), therapistID, start, end, "UTC")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if len(got) != 1 || !got[0].Start.Equal(slots[0].Start) {
		t.Fatalf("unexpected cached slots: %+v", got)
	}

	// A different range or timezone is its own entry.
	if _, ok := cache.Get(context.Background(), therapistID, start, end, "America/New_York"); ok {
		t.Fatal("expected miss for a different timezone")
	}
}

func TestSlotCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	therapistID := uuid.New()
	other := uuid.New()
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	slots := []Slot{{Start: start, End: start.Add(time.Hour), TherapistID: therapistID}}
	cache.Set(context.Background(), therapistID, start, end, "UTC", slots)
	cache.Set(context.Background(), other, start, end, "UTC", slots)

	if err := cache.Invalidate(context.Background(), therapistID); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	// Bumping the generation orphans every entry for that therapist.
	if _, ok := cache.Get(context.Background(), therapistID, start, end, "UTC"); ok {
		t.Fatal("expected miss after invalidation")
	}
	// Other therapists are untouched.
	if _, ok := cache.Get(context.Background(), other, start, end, "UTC"); !ok {
		t.Fatal("invalidation must not affect other therapists")
	}
}

func TestSlotCacheNilClientIsNoop(t *testing.T) {
	cache := NewSlotCache(nil, time.Minute, logging.Default())
	therapistID := uuid.New()
	now := time.Now().UTC()

	cache.Set(context.Background(), therapistID, now, now, "UTC", []Slot{})
	if _, ok := cache.Get(context.Background(), therapistID, now, now, "UTC"); ok {
		t.Fatal("nil-backed cache must always miss")
	}
	if err := cache.Invalidate(context.Background(), therapistID); err != nil {
		t.Fatalf("nil-backed invalidate must be a no-op: %v", err)
	}
}

func TestSlotCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	therapistID := uuid.New()
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	cache.Set(context.Background(), therapistID, start, start, "UTC", []Slot{{Start: start, End: start.Add(time.Hour)}})
	mr.FastForward(2 * time.Minute)

	if _, ok := cache.Get(context.Background(), therapistID, start, start, "UTC"); ok {
		t.Fatal("expected entry to expire after the TTL")
	}
}
