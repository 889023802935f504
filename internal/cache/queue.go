package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voyagen/channelvault/internal/models"
)

// RefreshEvent summarises one refresh for the operator chat front end.
type RefreshEvent struct {
	Trigger       string             `json:"trigger"` // "startup", "schedule", "manual"
	At            time.Time          `json:"at"`
	Outcome       string             `json:"outcome"` // see service.Outcome*
	ChannelCount  int                `json:"channel_count"`
	CategoryCount int                `json:"category_count"`
	Diff          models.DiffSummary `json:"diff"`
	FailedSources []string           `json:"failed_sources,omitempty"`
}

// EventQueue is the Redis list that refresh events are pushed to.
const EventQueue = KeyPrefix + "events:refresh"

// maxQueuedEvents caps the list so an absent consumer cannot grow it forever.
const maxQueuedEvents = 100

// Enqueue pushes an event onto the left side of a Redis list, trimming the
// oldest entries beyond maxQueuedEvents.
func Enqueue(ctx context.Context, r *Redis, queue string, ev RefreshEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, queue, data)
	pipe.LTrim(ctx, queue, 0, maxQueuedEvents-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	return nil
}

// Dequeue blocks until an event is available on the right side of the list
// or the timeout expires. On timeout (nil, nil) is returned so the caller
// can loop and check for shutdown.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*RefreshEvent, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var ev RefreshEvent
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &ev, nil
}

// QueueNotifier publishes refresh events to EventQueue.
type QueueNotifier struct {
	r *Redis
}

// NewQueueNotifier returns a notifier pushing to r.
func NewQueueNotifier(r *Redis) *QueueNotifier {
	return &QueueNotifier{r: r}
}

// Notify pushes ev.
func (n *QueueNotifier) Notify(ctx context.Context, ev RefreshEvent) error {
	return Enqueue(ctx, n.r, EventQueue, ev)
}
