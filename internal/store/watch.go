package store

import (
	"context"
	"sync"
)

// hub fans committed changes out to subscribers. A subscriber that has not
// drained its previous event misses the new one; subscribers re-read the
// current snapshot on every event, so one pending event is enough.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

type subscriber struct {
	collection Collection
	ch         chan Change
}

func newHub() *hub {
	return &hub{subs: make(map[int]subscriber)}
}

func (h *hub) subscribe(ctx context.Context, collection Collection) <-chan Change {
	ch := make(chan Change, 1)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscriber{collection: collection, ch: ch}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (h *hub) publish(changes ...Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range changes {
		for _, s := range h.subs {
			if s.collection != c.Collection {
				continue
			}
			select {
			case s.ch <- c:
			default:
			}
		}
	}
}
