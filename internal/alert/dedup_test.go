package alert

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/workdesk/model"
)

func testKey(number string, class model.AlertClass) model.AlertKey {
	return model.AlertKey{
		OrderNumber: number,
		Class:       class,
		Day:         "2026-08-29",
	}
}

func TestMemoryDedupStore_MarkIfNew(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()
	key := testKey("42", model.AlertOverdue)

	first, err := store.MarkIfNew(ctx, key)
	if err != nil {
		t.Fatalf("MarkIfNew error: %v", err)
	}
	if !first {
		t.Error("first = false on unseen key, want true")
	}

	first, err = store.MarkIfNew(ctx, key)
	if err != nil {
		t.Fatalf("MarkIfNew error: %v", err)
	}
	if first {
		t.Error("first = true on repeat key, want false")
	}
}

func TestMemoryDedupStore_DistinctKeys(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	keys := []model.AlertKey{
		testKey("42", model.AlertOverdue),
		testKey("42", model.AlertDueToday),
		testKey("43", model.AlertOverdue),
		{OrderNumber: "42", Class: model.AlertOverdue, Day: "2026-08-30"},
	}
	for _, key := range keys {
		first, err := store.MarkIfNew(ctx, key)
		if err != nil {
			t.Fatalf("MarkIfNew(%v) error: %v", key, err)
		}
		if !first {
			t.Errorf("MarkIfNew(%v) = false, keys should be independent", key)
		}
	}
}

func TestMemoryDedupStore_ExpiredKeyIsNewAgain(t *testing.T) {
	store := NewMemoryDedupStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()
	key := testKey("42", model.AlertDueTomorrow)

	if first, _ := store.MarkIfNew(ctx, key); !first {
		t.Fatal("first mark rejected")
	}

	current = current.Add(keyTTL + time.Minute)
	first, err := store.MarkIfNew(ctx, key)
	if err != nil {
		t.Fatalf("MarkIfNew error: %v", err)
	}
	if !first {
		t.Error("expired key still marked as seen")
	}
}

func TestMemoryDedupStore_Sweep(t *testing.T) {
	store := NewMemoryDedupStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	store.MarkIfNew(ctx, testKey("1", model.AlertOverdue))
	store.MarkIfNew(ctx, testKey("2", model.AlertOverdue))
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}

	current = current.Add(keyTTL + time.Minute)
	store.Sweep()
	if store.Len() != 0 {
		t.Errorf("Len = %d after sweep, want 0", store.Len())
	}
}

func TestRedisDedupStore_MarkIfNew(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisDedupStore(client)
	ctx := context.Background()
	key := testKey("42", model.AlertDueIn2Days)

	first, err := store.MarkIfNew(ctx, key)
	if err != nil {
		t.Fatalf("MarkIfNew error: %v", err)
	}
	if !first {
		t.Error("first = false on unseen key, want true")
	}

	first, err = store.MarkIfNew(ctx, key)
	if err != nil {
		t.Fatalf("MarkIfNew error: %v", err)
	}
	if first {
		t.Error("first = true on repeat key, want false")
	}

	if ttl := mr.TTL(key.String()); ttl <= 0 || ttl > keyTTL {
		t.Errorf("key TTL = %v, want within (0, %v]", ttl, keyTTL)
	}
}

func TestRedisDedupStore_ExpiryReleasesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisDedupStore(client)
	ctx := context.Background()
	key := testKey("7", model.AlertDueToday)

	if first, _ := store.MarkIfNew(ctx, key); !first {
		t.Fatal("first mark rejected")
	}

	mr.FastForward(keyTTL + time.Minute)
	first, err := store.MarkIfNew(ctx, key)
	if err != nil {
		t.Fatalf("MarkIfNew error: %v", err)
	}
	if !first {
		t.Error("expired key still marked as seen")
	}
}
