package state

import (
	"errors"
	"sort"
	"sync"

	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/models"
)

// ItemStore holds the positioned item records keyed by path.
// Thread-safe for concurrent access.
type ItemStore struct {
	eventBus *events.EventBus

	items map[string]models.Item

	mu sync.RWMutex
}

// NewItemStore creates an empty store. eventBus may be nil.
func NewItemStore(eventBus *events.EventBus) *ItemStore {
	return &ItemStore{
		eventBus: eventBus,
		items:    make(map[string]models.Item),
	}
}

// Replace swaps the whole contents for items. Malformed records are dropped and
// returned joined in err; the valid ones are still applied. When a path occurs
// more than once the last record wins. The returned slice is what was stored.
func (s *ItemStore) Replace(items []models.Item) ([]models.Item, error) {
	next := make(map[string]models.Item, len(items))
	var errs []error
	for _, item := range items {
		if err := item.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		next[item.Path] = item
	}

	applied := make([]models.Item, 0, len(next))
	for _, item := range next {
		applied = append(applied, item)
	}
	sortByPath(applied)

	s.mu.Lock()
	s.items = next
	s.mu.Unlock()

	s.publish(OpReplace, "", len(next), len(errs))
	return applied, errors.Join(errs...)
}

// Put inserts or replaces one record. It returns the previous record, if any.
func (s *ItemStore) Put(item models.Item) (prev models.Item, existed bool, err error) {
	if err := item.Validate(); err != nil {
		return models.Item{}, false, err
	}

	s.mu.Lock()
	prev, existed = s.items[item.Path]
	s.items[item.Path] = item
	count := len(s.items)
	s.mu.Unlock()

	op := OpAdd
	if existed {
		op = OpUpdate
	}
	s.publish(op, item.Path, count, 0)
	return prev, existed, nil
}

// Remove deletes a record and returns it. Unknown paths are a no-op.
func (s *ItemStore) Remove(path string) (models.Item, bool) {
	s.mu.Lock()
	item, ok := s.items[path]
	if ok {
		delete(s.items, path)
	}
	count := len(s.items)
	s.mu.Unlock()

	if ok {
		s.publish(OpRemove, path, count, 0)
	}
	return item, ok
}

// Get returns the record stored for path.
func (s *ItemStore) Get(path string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[path]
	return item, ok
}

// Len returns the number of records.
func (s *ItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all records sorted by path.
func (s *ItemStore) Items() []models.Item {
	s.mu.RLock()
	result := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	s.mu.RUnlock()

	sortByPath(result)
	return result
}

// Each calls fn for every record until fn returns false. fn must not mutate the store.
func (s *ItemStore) Each(fn func(models.Item) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if !fn(item) {
			return
		}
	}
}

// Clear removes every record.
func (s *ItemStore) Clear() {
	s.mu.Lock()
	s.items = make(map[string]models.Item)
	s.mu.Unlock()

	s.publish(OpClear, "", 0, 0)
}

func (s *ItemStore) publish(op ChangeOp, path string, count, rejected int) {
	if s.eventBus != nil {
		s.eventBus.Publish(NewItemsChangedEvent(op, path, count, rejected))
	}
}

func sortByPath(items []models.Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Path < items[j].Path
	})
}
