package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/items-api/internal/model"
)

var itemsStored = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "items_stored",
		Help: "Number of items currently held in memory",
	},
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []model.Item
	nextID int64
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make([]model.Item, 0),
		nextID: 1,
	}
}

// Create adds a new item to the store and returns it with its generated ID.
func (s *MemoryStore) Create(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := model.Item{
		ID:         s.nextIDLocked(),
		ItemCreate: in.Clone(),
	}
	s.items = append(s.items, item)
	itemsStored.Set(float64(len(s.items)))

	out := cloneItem(item)
	return &out, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.items {
		if s.items[i].ID == id {
			out := cloneItem(s.items[i])
			return &out, nil
		}
	}

	return nil, ErrNotFound
}

// List returns the window [skip, skip+limit) of the stored items.
// Offsets past the end yield an empty slice.
func (s *MemoryStore) List(ctx context.Context, skip, limit int) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if skip < 0 {
		skip = 0
	}
	if skip >= len(s.items) || limit <= 0 {
		return []model.Item{}, nil
	}

	end := len(s.items)
	if limit < end-skip {
		end = skip + limit
	}

	items := make([]model.Item, 0, end-skip)
	for _, item := range s.items[skip:end] {
		items = append(items, cloneItem(item))
	}

	return items, nil
}

// Reset removes all items and restarts identifiers at 1.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make([]model.Item, 0)
	s.nextID = 1
	itemsStored.Set(0)
}

// Len returns the number of stored items.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

func (s *MemoryStore) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func cloneItem(item model.Item) model.Item {
	return model.Item{ID: item.ID, ItemCreate: item.ItemCreate.Clone()}
}
