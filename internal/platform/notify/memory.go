// Package notify provides ChangeNotifier implementations carrying Cliente change signals.
package notify

import (
	"context"
	"sync"

	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/cliente/usecase"
	"cliente_backend/internal/platform/metrics"
)

// MemoryNotifier fans change events out to in-process subscribers.
// It is used when Redis is unavailable and only reaches subscribers of the same process.
type MemoryNotifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan entity.ChangeEvent
}

var _ usecase.ChangeNotifier = (*MemoryNotifier)(nil)

// NewMemoryNotifier creates an empty MemoryNotifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[string]map[int]chan entity.ChangeEvent)}
}

// Publish delivers ev to every subscriber of ev.OwnerID.
// A subscriber whose buffer is full misses the signal; it still has one pending refetch queued.
func (n *MemoryNotifier) Publish(_ context.Context, ev entity.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[ev.OwnerID] {
		select {
		case ch <- ev:
		default:
		}
	}
	metrics.RecordChangePublish("memory", "success")
	return nil
}

// Subscribe registers a listener for ownerID until release is called or ctx is done.
func (n *MemoryNotifier) Subscribe(ctx context.Context, ownerID string) (<-chan entity.ChangeEvent, func(), error) {
	ch := make(chan entity.ChangeEvent, 1)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	if n.subs[ownerID] == nil {
		n.subs[ownerID] = make(map[int]chan entity.ChangeEvent)
	}
	n.subs[ownerID][id] = ch
	n.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[ownerID], id)
			if len(n.subs[ownerID]) == 0 {
				delete(n.subs, ownerID)
			}
			n.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		release()
	}()

	return ch, release, nil
}

// subscriberCount returns the number of listeners for ownerID.
func (n *MemoryNotifier) subscriberCount(ownerID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[ownerID])
}
