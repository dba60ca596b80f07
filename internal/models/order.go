package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderDispatched OrderStatus = "DISPATCHED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

type statusInfo struct {
	display     string
	description string
	modifiable  bool
	cancellable bool
	terminal    bool
}

var statusTable = map[OrderStatus]statusInfo{
	OrderPending:    {"Pending", "Order is being prepared", true, true, false},
	OrderConfirmed:  {"Confirmed", "Order confirmed and being prepared", false, true, false},
	OrderDispatched: {"Dispatched", "Order is out for delivery", false, true, false},
	OrderDelivered:  {"Delivered", "Order has been delivered", false, false, true},
	OrderCancelled:  {"Cancelled", "Order has been cancelled", false, false, true},
}

var (
	ActiveStatuses  = []OrderStatus{OrderPending, OrderConfirmed, OrderDispatched}
	HistoryStatuses = []OrderStatus{OrderDelivered, OrderCancelled}
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", invalid("status", fmt.Sprintf("unknown order status %q", s))
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

func (s OrderStatus) DisplayName() string  { return statusTable[s].display }
func (s OrderStatus) Description() string  { return statusTable[s].description }
func (s OrderStatus) CanBeModified() bool  { return statusTable[s].modifiable }
func (s OrderStatus) CanBeCancelled() bool { return statusTable[s].cancellable }
func (s OrderStatus) IsTerminal() bool     { return statusTable[s].terminal }

var (
	ErrOrderTransition = errors.New("illegal order status transition")
	ErrEmptyOrder      = errors.New("order must have at least one item")
)

type TransitionError struct {
	OrderID string
	Action  string
	From    OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s order %s: current status is %s", e.Action, e.OrderID, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrOrderTransition
}

type ItemType string

const (
	ItemSandwich ItemType = "SANDWICH"
	ItemChips    ItemType = "CHIPS"
	ItemDrink    ItemType = "DRINK"
)

type OrderItem struct {
	Type        ItemType
	Description string
	PriceCents  int64
}

type Order struct {
	ID           string
	CustomerID   string
	CustomerName string
	Items        []OrderItem
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewOrder(id, customerID, customerName string, now time.Time) (Order, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return Order{}, invalid("customerName", "must not be blank")
	}
	if customerID == "" {
		return Order{}, invalid("customerId", "must not be blank")
	}
	return Order{
		ID:           id,
		CustomerID:   customerID,
		CustomerName: customerName,
		Items:        []OrderItem{},
		Status:       OrderPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (o *Order) AddItem(item OrderItem, now time.Time) error {
	if !o.Status.CanBeModified() {
		return &TransitionError{OrderID: o.ID, Action: "modify", From: o.Status}
	}
	if item.PriceCents < 0 {
		return invalid("price", "must not be negative")
	}
	o.Items = append(o.Items, item)
	o.UpdatedAt = now
	return nil
}

func (o *Order) RemoveItem(index int, now time.Time) error {
	if !o.Status.CanBeModified() {
		return &TransitionError{OrderID: o.ID, Action: "modify", From: o.Status}
	}
	if index < 0 || index >= len(o.Items) {
		return invalid("index", fmt.Sprintf("no item at position %d", index))
	}
	o.Items = append(o.Items[:index], o.Items[index+1:]...)
	o.UpdatedAt = now
	return nil
}

func (o *Order) Confirm(now time.Time) error {
	if o.Status != OrderPending {
		return &TransitionError{OrderID: o.ID, Action: "confirm", From: o.Status}
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	return o.moveTo(OrderConfirmed, now)
}

func (o *Order) Dispatch(now time.Time) error {
	if o.Status != OrderConfirmed {
		return &TransitionError{OrderID: o.ID, Action: "dispatch", From: o.Status}
	}
	return o.moveTo(OrderDispatched, now)
}

func (o *Order) Deliver(now time.Time) error {
	if o.Status != OrderDispatched {
		return &TransitionError{OrderID: o.ID, Action: "deliver", From: o.Status}
	}
	return o.moveTo(OrderDelivered, now)
}

func (o *Order) Cancel(now time.Time) error {
	if !o.Status.CanBeCancelled() {
		return &TransitionError{OrderID: o.ID, Action: "cancel", From: o.Status}
	}
	return o.moveTo(OrderCancelled, now)
}

func (o *Order) moveTo(status OrderStatus, now time.Time) error {
	o.Status = status
	o.UpdatedAt = now
	return nil
}

func (o Order) TotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.PriceCents
	}
	return total
}

// ShortID is the first eight characters of the id, upper-cased, as
// printed on receipts.
func (o Order) ShortID() string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

func (o Order) Receipt() string {
	heavy := strings.Repeat("=", 50)
	light := strings.Repeat("-", 50)

	var b strings.Builder
	fmt.Fprintln(&b, heavy)
	fmt.Fprintf(&b, "ORDER #%s\n", o.ShortID())
	fmt.Fprintln(&b, heavy)
	fmt.Fprintf(&b, "Customer: %s\n", o.CustomerName)
	fmt.Fprintf(&b, "Status: %s\n", o.Status.DisplayName())
	fmt.Fprintf(&b, "Date: %s\n", o.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintln(&b, light)
	fmt.Fprintln(&b, "ITEMS:")
	fmt.Fprintln(&b, light)
	for i, item := range o.Items {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, item.Description, FormatCents(item.PriceCents))
	}
	fmt.Fprintln(&b, light)
	fmt.Fprintf(&b, "TOTAL: %s\n", FormatCents(o.TotalCents()))
	fmt.Fprintln(&b, heavy)
	return b.String()
}

func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
