package storage

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plugaishop/ordercore/internal/kvstore"
	"github.com/plugaishop/ordercore/internal/notification"
)

const notificationsKey = "notifications.v1"

// NotificationStore keeps the in-app inbox as one JSON document,
// newest first.
type NotificationStore struct {
	kv *kvstore.Store
	mu sync.Mutex

	timeNow func() time.Time
}

func NewNotificationStore(kv *kvstore.Store) *NotificationStore {
	return &NotificationStore{
		kv:      kv,
		timeNow: time.Now,
	}
}

// List returns every notification, normalized, newest first. Invalid
// records are dropped and the collection rewritten.
func (s *NotificationStore) List() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *NotificationStore) listLocked() []notification.Notification {
	blob := s.kv.Get(notificationsKey)
	if blob == nil {
		return []notification.Notification{}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(blob, &records); err != nil {
		zap.S().Warnw("notification collection is not a JSON array, resetting", "error", err)
		s.writeLocked([]notification.Notification{})
		return []notification.Notification{}
	}

	now := s.timeNow()
	items := make([]notification.Notification, 0, len(records))
	healed := false
	for _, rec := range records {
		n, ok := notification.Normalize(rec, now)
		if !ok {
			healed = true
			continue
		}
		items = append(items, n)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if healed {
		s.writeLocked(items)
	}
	return items
}

func (s *NotificationStore) writeLocked(items []notification.Notification) {
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		zap.S().Errorw("failed to encode notification collection", "error", err)
		return
	}
	s.kv.Set(notificationsKey, b)
}

// Add prepends n unless a record with the same id already exists.
func (s *NotificationStore) Add(n notification.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.listLocked()
	for _, existing := range items {
		if existing.ID == n.ID {
			return
		}
	}
	items = append([]notification.Notification{n}, items...)
	s.writeLocked(items)
}

// MarkRead flips the read flag on one notification. Unknown ids are a
// no-op.
func (s *NotificationStore) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.listLocked()
	for i := range items {
		if items[i].ID == id {
			if !items[i].Read {
				items[i].Read = true
				s.writeLocked(items)
			}
			return true
		}
	}
	return false
}

// MarkAllRead flips the read flag on the entire inbox.
func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.listLocked()
	changed := false
	for i := range items {
		if !items[i].Read {
			items[i].Read = true
			changed = true
		}
	}
	if changed {
		s.writeLocked(items)
	}
}

// UnreadCount backs the badge over the inbox icon.
func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.listLocked() {
		if !n.Read {
			count++
		}
	}
	return count
}

// Clear drops the whole inbox.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv.Delete(notificationsKey)
}
