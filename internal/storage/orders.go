package storage

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plugaishop/ordercore/internal/kvstore"
	"github.com/plugaishop/ordercore/internal/order"
)

const ordersKey = "orders.v1"

// OrderStore keeps the whole order collection as one JSON document.
// Every read passes each record through the normalizer; when a record
// had to be repaired or dropped, the healed collection is written back
// immediately so future reads are cheap and consistent.
type OrderStore struct {
	kv *kvstore.Store
	mu sync.Mutex

	timeNow func() time.Time
}

func NewOrderStore(kv *kvstore.Store) *OrderStore {
	return &OrderStore{
		kv:      kv,
		timeNow: time.Now,
	}
}

// List returns every order, normalized, newest first. I/O failures
// surface as an empty list.
func (s *OrderStore) List() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *OrderStore) listLocked() []order.Order {
	blob := s.kv.Get(ordersKey)
	if blob == nil {
		return []order.Order{}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(blob, &records); err != nil {
		zap.S().Warnw("order collection is not a JSON array, resetting", "error", err)
		s.writeLocked([]order.Order{})
		return []order.Order{}
	}

	now := s.timeNow()
	orders := make([]order.Order, 0, len(records))
	healed := false
	for _, rec := range records {
		o, ok := order.Normalize(rec, now)
		if !ok {
			healed = true
			continue
		}
		if !canonical(rec, o) {
			healed = true
		}
		orders = append(orders, o)
	}

	sortNewestFirst(orders)
	if healed {
		zap.S().Infow("order collection auto-healed", "records", len(orders))
		s.writeLocked(orders)
	}
	return orders
}

// canonical reports whether the stored record already matches the
// normalized form byte for byte, so healing stabilizes after one pass.
func canonical(rec json.RawMessage, o order.Order) bool {
	want, err := json.Marshal(o)
	if err != nil {
		return true
	}
	var got bytes.Buffer
	if err := json.Compact(&got, rec); err != nil {
		return false
	}
	return bytes.Equal(got.Bytes(), want)
}

func sortNewestFirst(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func (s *OrderStore) writeLocked(orders []order.Order) {
	b, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		zap.S().Errorw("failed to encode order collection", "error", err)
		return
	}
	s.kv.Set(ordersKey, b)
}

// Set replaces the whole collection.
func (s *OrderStore) Set(orders []order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if orders == nil {
		orders = []order.Order{}
	}
	sortNewestFirst(orders)
	s.writeLocked(orders)
}

// Add inserts o, replacing any record with the same id.
func (s *OrderStore) Add(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.listLocked()
	next := make([]order.Order, 0, len(existing)+1)
	next = append(next, o)
	for _, e := range existing {
		if e.ID != o.ID {
			next = append(next, e)
		}
	}
	sortNewestFirst(next)
	s.writeLocked(next)
}

// GetByID returns the order or nil when unknown.
func (s *OrderStore) GetByID(id string) *order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.listLocked() {
		if o.ID == id {
			out := o
			return &out
		}
	}
	return nil
}

// Update applies mutate to the order with the given id and persists the
// collection. Returns the updated order, or nil when the id is unknown.
func (s *OrderStore) Update(id string, mutate func(*order.Order)) *order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.listLocked()
	for i := range orders {
		if orders[i].ID == id {
			mutate(&orders[i])
			updated := orders[i]
			sortNewestFirst(orders)
			s.writeLocked(orders)
			return &updated
		}
	}
	return nil
}

// Clear drops the whole collection. Debug and test affordance.
func (s *OrderStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv.Delete(ordersKey)
}
