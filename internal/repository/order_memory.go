package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"campusdelivery/internal/models"
)

type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]models.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]models.Order)}
}

func (r *MemoryOrderRepository) Create(_ context.Context, order models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, id string) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *MemoryOrderRepository) FindByStatus(_ context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool {
		return slices.Contains(statuses, o.Status)
	}), nil
}

func (r *MemoryOrderRepository) FindByCustomer(_ context.Context, customerID string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool {
		return o.CustomerID == customerID
	}), nil
}

func (r *MemoryOrderRepository) FindPendingCreatedBefore(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool {
		return o.Status == models.OrderPending && o.CreatedAt.Before(cutoff)
	}), nil
}

func (r *MemoryOrderRepository) Update(_ context.Context, id string, fn func(*models.Order) error) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	working := cloneOrder(current)
	if err := fn(&working); err != nil {
		return models.Order{}, err
	}
	r.orders[id] = cloneOrder(working)
	return working, nil
}

func (r *MemoryOrderRepository) filter(keep func(models.Order) bool) []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Order, 0)
	for _, order := range r.orders {
		if keep(order) {
			out = append(out, cloneOrder(order))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}
