package notification

import (
	"encoding/json"
	"sync"

	"github.com/plugaishop/ordercore/internal/kvstore"
	"github.com/plugaishop/ordercore/internal/order"
)

const guardKey = "notify_guard.v1"

// Guard remembers the last status each order was notified about, so a
// polling-driven inspection that finds nothing new does not re-notify.
// The map is persisted next to the collections it protects.
type Guard struct {
	kv *kvstore.Store
	mu sync.Mutex
}

func NewGuard(kv *kvstore.Store) *Guard {
	return &Guard{kv: kv}
}

func (g *Guard) load() map[string]order.Status {
	state := make(map[string]order.Status)
	if b := g.kv.Get(guardKey); b != nil {
		// A corrupt guard map only costs one duplicate notification.
		_ = json.Unmarshal(b, &state)
	}
	return state
}

// ShouldNotify reports whether a transition to status `to` is news for
// orderID. Emitting without recording keeps the guard open.
func (g *Guard) ShouldNotify(orderID string, to order.Status) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load()[orderID] != to
}

// Record marks `to` as the last notified status for orderID.
func (g *Guard) Record(orderID string, to order.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.load()
	state[orderID] = to
	b, err := json.Marshal(state)
	if err != nil {
		return
	}
	g.kv.Set(guardKey, b)
}

// Reset forgets every recorded status.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.kv.Delete(guardKey)
}
