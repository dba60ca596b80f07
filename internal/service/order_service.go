package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campusdelivery/internal/ids"
	"campusdelivery/internal/menu"
	"campusdelivery/internal/models"
	"campusdelivery/internal/notify"
	"campusdelivery/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderForbidden    = errors.New("operation requires staff role")
	ErrInvalidOrderState = models.ErrOrderTransition
	ErrEmptyOrder        = models.ErrEmptyOrder
)

// Actor is the authenticated account performing an order operation.
type Actor struct {
	AccountID   string
	DisplayName string
	Role        models.Role
}

func (a Actor) isStaff() bool {
	return a.Role == models.RoleStaff
}

type OrderItemsInput struct {
	Sandwiches []menu.Sandwich
	Chips      []menu.Chips
	Drinks     []menu.Drink
}

func (in OrderItemsInput) items() ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(in.Sandwiches)+len(in.Chips)+len(in.Drinks))
	for _, s := range in.Sandwiches {
		item, err := s.Item()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	for _, c := range in.Chips {
		item, err := c.Item()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	for _, d := range in.Drinks {
		item, err := d.Item()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

type OrderService struct {
	orders   repository.OrderRepository
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewOrderService(orders repository.OrderRepository, notifier notify.Notifier, log zerolog.Logger, now func() time.Time) *OrderService {
	if now == nil {
		now = time.Now
	}
	return &OrderService{
		orders:   orders,
		notifier: notifier,
		log:      log,
		now:      now,
	}
}

func (s *OrderService) Place(ctx context.Context, actor Actor, input OrderItemsInput) (models.Order, error) {
	items, err := input.items()
	if err != nil {
		return models.Order{}, err
	}

	now := s.now()
	order, err := models.NewOrder(ids.New(), actor.AccountID, actor.DisplayName, now)
	if err != nil {
		return models.Order{}, err
	}
	for _, item := range items {
		if err := order.AddItem(item, now); err != nil {
			return models.Order{}, err
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.log.Info().
		Str("order_id", order.ID).
		Str("customer_id", order.CustomerID).
		Int("items", len(order.Items)).
		Msg("order placed")
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id string) (models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, orderErr(err)
	}
	if !actor.isStaff() && order.CustomerID != actor.AccountID {
		return models.Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) Receipt(ctx context.Context, actor Actor, id string) (string, error) {
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	return order.Receipt(), nil
}

func (s *OrderService) AddItems(ctx context.Context, actor Actor, id string, input OrderItemsInput) (models.Order, error) {
	items, err := input.items()
	if err != nil {
		return models.Order{}, err
	}
	return s.mutate(ctx, actor, id, false, func(o *models.Order) error {
		now := s.now()
		for _, item := range items {
			if err := o.AddItem(item, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *OrderService) RemoveItem(ctx context.Context, actor Actor, id string, index int) (models.Order, error) {
	return s.mutate(ctx, actor, id, false, func(o *models.Order) error {
		return o.RemoveItem(index, s.now())
	})
}

func (s *OrderService) Confirm(ctx context.Context, actor Actor, id string) (models.Order, error) {
	order, err := s.mutate(ctx, actor, id, false, func(o *models.Order) error {
		return o.Confirm(s.now())
	})
	if err != nil {
		return models.Order{}, err
	}
	s.announce(ctx, order)
	return order, nil
}

func (s *OrderService) Dispatch(ctx context.Context, actor Actor, id string) (models.Order, error) {
	order, err := s.mutate(ctx, actor, id, true, func(o *models.Order) error {
		return o.Dispatch(s.now())
	})
	if err != nil {
		return models.Order{}, err
	}
	s.announce(ctx, order)
	return order, nil
}

func (s *OrderService) Deliver(ctx context.Context, actor Actor, id string) (models.Order, error) {
	order, err := s.mutate(ctx, actor, id, true, func(o *models.Order) error {
		return o.Deliver(s.now())
	})
	if err != nil {
		return models.Order{}, err
	}
	s.announce(ctx, order)
	if err := s.notifier.Deliver(ctx, notify.OrderReceipt(order.CustomerID, order.ID, order.Receipt())); err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("publish receipt")
	}
	return order, nil
}

func (s *OrderService) Cancel(ctx context.Context, actor Actor, id string) (models.Order, error) {
	order, err := s.mutate(ctx, actor, id, false, func(o *models.Order) error {
		return o.Cancel(s.now())
	})
	if err != nil {
		return models.Order{}, err
	}
	s.announce(ctx, order)
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, actor Actor) ([]models.Order, error) {
	return s.orders.FindByCustomer(ctx, actor.AccountID)
}

func (s *OrderService) ListActive(ctx context.Context, actor Actor) ([]models.Order, error) {
	if !actor.isStaff() {
		return nil, ErrOrderForbidden
	}
	return s.orders.FindByStatus(ctx, models.ActiveStatuses...)
}

func (s *OrderService) ListHistory(ctx context.Context, actor Actor) ([]models.Order, error) {
	if !actor.isStaff() {
		return nil, ErrOrderForbidden
	}
	return s.orders.FindByStatus(ctx, models.HistoryStatuses...)
}

func (s *OrderService) ListByStatus(ctx context.Context, actor Actor, status models.OrderStatus) ([]models.Order, error) {
	if !actor.isStaff() {
		return nil, ErrOrderForbidden
	}
	return s.orders.FindByStatus(ctx, status)
}

// ExpireStalePending cancels orders left in PENDING for longer than maxAge
// and returns how many were cancelled.
func (s *OrderService) ExpireStalePending(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.orders.FindPendingCreatedBefore(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("find stale orders: %w", err)
	}

	cancelled := 0
	for _, candidate := range stale {
		order, err := s.orders.Update(ctx, candidate.ID, func(o *models.Order) error {
			if o.Status != models.OrderPending {
				return models.ErrOrderTransition
			}
			return o.Cancel(s.now())
		})
		if errors.Is(err, models.ErrOrderTransition) || errors.Is(err, repository.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return cancelled, fmt.Errorf("cancel order %s: %w", candidate.ID, err)
		}
		cancelled++
		s.announce(ctx, order)
	}
	return cancelled, nil
}

func (s *OrderService) mutate(ctx context.Context, actor Actor, id string, staffOnly bool, fn func(*models.Order) error) (models.Order, error) {
	if staffOnly && !actor.isStaff() {
		return models.Order{}, ErrOrderForbidden
	}
	order, err := s.orders.Update(ctx, id, func(o *models.Order) error {
		if !actor.isStaff() && o.CustomerID != actor.AccountID {
			return ErrOrderNotFound
		}
		return fn(o)
	})
	if err != nil {
		return models.Order{}, orderErr(err)
	}
	return order, nil
}

func (s *OrderService) announce(ctx context.Context, order models.Order) {
	if err := s.notifier.Deliver(ctx, notify.OrderStatus(order.CustomerID, order.ID, string(order.Status))); err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("publish order status")
	}
}

func orderErr(err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return ErrOrderNotFound
	}
	return err
}
