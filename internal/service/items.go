// Package service implements the item use cases independently of the transport.
package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
	"github.com/vyrodovalexey/items-api/internal/store"
)

// HealthStatusHealthy is reported by Health.
const HealthStatusHealthy = "healthy"

var itemsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "items_created_total",
		Help: "Total number of items created",
	},
)

// Publisher is notified after an item has been stored.
type Publisher interface {
	PublishItemCreated(item model.Item)
}

// ItemService implements health, create, get and list.
type ItemService struct {
	store       store.Store
	publisher   Publisher
	serviceName string
	logger      *zap.Logger
}

// NewItemService creates an ItemService. publisher may be nil.
func NewItemService(s store.Store, publisher Publisher, serviceName string, logger *zap.Logger) *ItemService {
	return &ItemService{
		store:       s,
		publisher:   publisher,
		serviceName: serviceName,
		logger:      logger,
	}
}

// Health returns the constant health record.
func (s *ItemService) Health() model.HealthStatus {
	return model.HealthStatus{
		Status:  HealthStatusHealthy,
		Service: s.serviceName,
	}
}

// CreateItem stores a validated payload.
func (s *ItemService) CreateItem(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	item, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	itemsCreatedTotal.Inc()

	s.logger.Debug("item created", zap.Int64("id", item.ID), zap.String("name", item.Name))

	if s.publisher != nil {
		s.publisher.PublishItemCreated(*item)
	}

	return item, nil
}

// GetItem returns the item with the given ID or store.ErrNotFound.
func (s *ItemService) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}
	return item, nil
}

// ListItems returns a page of items. params must already be validated.
func (s *ItemService) ListItems(ctx context.Context, params model.ListParams) ([]model.Item, error) {
	items, err := s.store.List(ctx, params.Skip, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}
