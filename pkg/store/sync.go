package store

import (
	"context"
	"log"
	"sync"

	"github.com/godeps/schoolsdk-go/pkg/telemetry"
)

// Reloader is what the bus drives on invalidation.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Bus fans mutation notifications out to every store subscribed to a
// resource. The store that performed the mutation is skipped; it already
// reloaded itself as part of the mutation.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Reloader
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]Reloader)}
}

// Subscribe registers a reloader for a resource. Subscriptions live for the
// lifetime of the bus.
func (b *Bus) Subscribe(resource string, r Reloader) {
	if r == nil {
		return
	}
	b.mu.Lock()
	b.subs[resource] = append(b.subs[resource], r)
	b.mu.Unlock()
}

// Publish reloads every subscriber of resource. Failed reloads are logged
// and skipped; one stale view must not block the rest.
func (b *Bus) Publish(ctx context.Context, resource string) {
	b.PublishFrom(ctx, resource, nil)
}

// PublishFrom is Publish minus the originating subscriber, which handled
// its own reload as part of the mutation.
func (b *Bus) PublishFrom(ctx context.Context, resource string, origin Reloader) {
	b.mu.RLock()
	subs := append([]Reloader(nil), b.subs[resource]...)
	b.mu.RUnlock()

	notified := 0
	for _, sub := range subs {
		if sub == origin {
			continue
		}
		notified++
		if err := sub.Reload(ctx); err != nil {
			log.Printf("sync: reload %s subscriber: %v", resource, err)
		}
	}
	telemetry.RecordInvalidation(ctx, telemetry.InvalidationData{
		Resource:    resource,
		Subscribers: notified,
	})
}
