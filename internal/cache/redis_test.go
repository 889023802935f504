package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestNew_parsesURL(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := New("redis://" + mr.Addr() + "/0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()
	if err := r.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if _, err := New("://bad"); err == nil {
		t.Error("want error for malformed url")
	}
}

func TestRedisStore_roundTrip(t *testing.T) {
	r, _ := newTestRedis(t)
	s := NewRedisStore(r)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now.Add(time.Minute) }
	ctx := context.Background()

	if _, err := s.Load(ctx, time.Hour); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("empty Load: err = %v, want ErrCacheMiss", err)
	}
	if err := s.Save(ctx, sampleCatalog(now)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	c, err := s.Load(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Channels) != 2 || c.Categories[0] != "News" || !c.LastRefresh.Equal(now) {
		t.Errorf("catalog = %+v", c)
	}

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := s.Load(ctx, time.Hour); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("stale Load: err = %v, want ErrCacheMiss", err)
	}
}

func TestRedisStore_corruptValue(t *testing.T) {
	r, mr := newTestRedis(t)
	if err := mr.Set(CatalogKey, "{oops"); err != nil {
		t.Fatal(err)
	}
	_, err := NewRedisStore(r).Load(context.Background(), time.Hour)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Backend != "redis" {
		t.Errorf("err = %v, want *Error{redis}", err)
	}
}

func TestAcquire(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	held := func() bool {
		t.Helper()
		ok, err := Held(ctx, r, RefreshLockKey)
		if err != nil {
			t.Fatalf("Held: %v", err)
		}
		return ok
	}

	lock, err := Acquire(ctx, r, RefreshLockKey, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !held() {
		t.Error("lock should be held")
	}
	if _, err := Acquire(ctx, r, RefreshLockKey, time.Minute); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire: err = %v, want ErrLocked", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if held() {
		t.Error("lock should be released")
	}

	// An expired lock can be taken again, and the old holder cannot release it.
	stale, err := Acquire(ctx, r, RefreshLockKey, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)
	current, err := Acquire(ctx, r, RefreshLockKey, time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if err := stale.Release(); err != nil {
		t.Fatal(err)
	}
	if !held() {
		t.Error("stale Release freed the new holder's lock")
	}
	if err := current.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestEventQueue(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	n := NewQueueNotifier(r)

	for i := 0; i < maxQueuedEvents+5; i++ {
		if err := n.Notify(ctx, RefreshEvent{Trigger: "schedule", ChannelCount: i}); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	list, err := mr.List(EventQueue)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != maxQueuedEvents {
		t.Errorf("queue length = %d, want %d", len(list), maxQueuedEvents)
	}

	// Oldest surviving event comes out first.
	ev, err := Dequeue(ctx, r, EventQueue, time.Second)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if ev == nil || ev.ChannelCount != 5 || ev.Trigger != "schedule" {
		t.Errorf("event = %+v, want ChannelCount 5", ev)
	}
}

func TestDequeue_emptyTimesOut(t *testing.T) {
	r, _ := newTestRedis(t)
	ev, err := Dequeue(context.Background(), r, EventQueue, time.Second)
	if err != nil || ev != nil {
		t.Errorf("Dequeue = %+v, %v; want nil, nil", ev, err)
	}
}
