// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("item not found")
	ErrCacheMiss = errors.New("cache miss")
)

// Store defines the interface for item storage operations.
type Store interface {
	// Create assigns the next identifier to the payload and appends the item.
	Create(ctx context.Context, in model.ItemCreate) (*model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id int64) (*model.Item, error)

	// List returns up to limit items starting at offset skip, in insertion order.
	List(ctx context.Context, skip, limit int) ([]model.Item, error)
}
