package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryIntentStorePutGetDelete(t *testing.T) {
	store := NewMemoryIntentStore()
	ctx := context.Background()

	intent := PaymentIntent{
		Reference:  "ref-1",
		OrderID:    42,
		Amount:     "7200.00",
		BuyerEmail: "buyer@example.com",
		CreatedAt:  time.Now(),
	}
	if err := store.Put(ctx, intent, time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "ref-1")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got.OrderID != 42 || got.Amount != "7200.00" {
		t.Fatalf("unexpected intent: %+v", got)
	}

	if err := store.Delete(ctx, "ref-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "ref-1"); ok {
		t.Fatalf("intent survived delete")
	}
}

func TestMemoryIntentStoreRejectsEmptyReference(t *testing.T) {
	store := NewMemoryIntentStore()
	if err := store.Put(context.Background(), PaymentIntent{Reference: "  "}, time.Hour); err == nil {
		t.Fatalf("expected error for empty reference")
	}
}

func TestMemoryIntentStoreExpiry(t *testing.T) {
	store := NewMemoryIntentStore()
	ctx := context.Background()

	if err := store.Put(ctx, PaymentIntent{Reference: "ref-ttl"}, time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	store.SetClock(func() time.Time { return time.Now().Add(30 * time.Minute) })
	if _, ok, err := store.Get(ctx, "ref-ttl"); err != nil || !ok {
		t.Fatalf("intent gone before TTL: ok=%v err=%v", ok, err)
	}

	store.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	if _, ok, _ := store.Get(ctx, "ref-ttl"); ok {
		t.Fatalf("intent alive past TTL")
	}
	// An expired entry reads as missing from then on, even at the old clock.
	store.SetClock(time.Now)
	if _, ok, _ := store.Get(ctx, "ref-ttl"); ok {
		t.Fatalf("expired intent resurrected")
	}
}

func TestMemoryIntentStoreMissingReference(t *testing.T) {
	store := NewMemoryIntentStore()
	got, ok, err := store.Get(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok || got != nil {
		t.Fatalf("expected miss, got %+v", got)
	}
	if err := store.Delete(context.Background(), "never-stored"); err != nil {
		t.Fatalf("delete of missing key failed: %v", err)
	}
}
