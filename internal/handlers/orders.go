package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campusdelivery/internal/menu"
	"campusdelivery/internal/middleware"
	"campusdelivery/internal/models"
	"campusdelivery/internal/service"
)

type portionRequest struct {
	Name  string `json:"name" binding:"required"`
	Extra bool   `json:"extra"`
}

type toppingRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
}

type sandwichRequest struct {
	BreadSize int              `json:"breadSize" binding:"required"`
	BreadType string           `json:"breadType" binding:"required"`
	Toasted   bool             `json:"toasted"`
	Meats     []portionRequest `json:"meats" binding:"dive"`
	Cheeses   []portionRequest `json:"cheeses" binding:"dive"`
	Toppings  []toppingRequest `json:"toppings" binding:"dive"`
	Sauces    []string         `json:"sauces"`
}

type chipsRequest struct {
	ChipName string `json:"chipName" binding:"required"`
}

type drinkRequest struct {
	DrinkName string `json:"drinkName" binding:"required"`
	DrinkSize string `json:"drinkSize"`
}

type orderItemsRequest struct {
	Sandwiches []sandwichRequest `json:"sandwiches" binding:"dive"`
	Chips      []chipsRequest    `json:"chips" binding:"dive"`
	Drinks     []drinkRequest    `json:"drinks" binding:"dive"`
}

type orderItemResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	CustomerName string              `json:"customerName"`
	Status       string              `json:"status"`
	StatusLabel  string              `json:"statusLabel"`
	Items        []orderItemResponse `json:"items"`
	ItemCount    int                 `json:"itemCount"`
	TotalCents   int64               `json:"totalCents"`
	Total        string              `json:"total"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func (h HandlerSet) PlaceOrder(c *gin.Context) {
	var req orderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	actor, ok := currentActor(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	order, err := h.orderService.Place(c.Request.Context(), actor, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h HandlerSet) GetOrder(c *gin.Context) {
	h.withOrder(c, h.orderService.Get)
}

func (h HandlerSet) ConfirmOrder(c *gin.Context) {
	h.withOrder(c, h.orderService.Confirm)
}

func (h HandlerSet) DispatchOrder(c *gin.Context) {
	h.withOrder(c, h.orderService.Dispatch)
}

func (h HandlerSet) DeliverOrder(c *gin.Context) {
	h.withOrder(c, h.orderService.Deliver)
}

func (h HandlerSet) CancelOrder(c *gin.Context) {
	h.withOrder(c, h.orderService.Cancel)
}

func (h HandlerSet) OrderReceipt(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	receipt, err := h.orderService.Receipt(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.String(http.StatusOK, receipt)
}

func (h HandlerSet) AddOrderItems(c *gin.Context) {
	var req orderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	h.withOrder(c, func(ctx context.Context, actor service.Actor, id string) (models.Order, error) {
		return h.orderService.AddItems(ctx, actor, id, req.input())
	})
}

func (h HandlerSet) RemoveOrderItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": "index must be a number"})
		return
	}

	h.withOrder(c, func(ctx context.Context, actor service.Actor, id string) (models.Order, error) {
		return h.orderService.RemoveItem(ctx, actor, id, index)
	})
}

func (h HandlerSet) ListMyOrders(c *gin.Context) {
	h.withOrders(c, h.orderService.ListMine)
}

func (h HandlerSet) ListActiveOrders(c *gin.Context) {
	h.withOrders(c, h.orderService.ListActive)
}

func (h HandlerSet) ListOrderHistory(c *gin.Context) {
	h.withOrders(c, h.orderService.ListHistory)
}

func (h HandlerSet) ListOrdersByStatus(c *gin.Context) {
	status, err := models.ParseOrderStatus(c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.withOrders(c, func(ctx context.Context, actor service.Actor) ([]models.Order, error) {
		return h.orderService.ListByStatus(ctx, actor, status)
	})
}

func (h HandlerSet) withOrder(c *gin.Context, fn func(context.Context, service.Actor, string) (models.Order, error)) {
	actor, ok := currentActor(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	order, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h HandlerSet) withOrders(c *gin.Context, fn func(context.Context, service.Actor) ([]models.Order, error)) {
	actor, ok := currentActor(c)
	if !ok {
		writeUnauthorized(c)
		return
	}

	orders, err := fn(c.Request.Context(), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	items := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		items = append(items, toOrderResponse(order))
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{
		AccountID:   account.ID,
		DisplayName: account.DisplayName,
		Role:        account.Role,
	}, true
}

func (r orderItemsRequest) input() service.OrderItemsInput {
	var in service.OrderItemsInput
	for _, s := range r.Sandwiches {
		sandwich := menu.Sandwich{
			Size:    s.BreadSize,
			Bread:   s.BreadType,
			Toasted: s.Toasted,
			Sauces:  s.Sauces,
		}
		for _, m := range s.Meats {
			sandwich.Meats = append(sandwich.Meats, menu.Portion{Name: m.Name, Extra: m.Extra})
		}
		for _, ch := range s.Cheeses {
			sandwich.Cheeses = append(sandwich.Cheeses, menu.Portion{Name: ch.Name, Extra: ch.Extra})
		}
		for _, t := range s.Toppings {
			sandwich.Toppings = append(sandwich.Toppings, t.Name)
		}
		in.Sandwiches = append(in.Sandwiches, sandwich)
	}
	for _, ch := range r.Chips {
		in.Chips = append(in.Chips, menu.Chips{Flavor: ch.ChipName})
	}
	for _, d := range r.Drinks {
		in.Drinks = append(in.Drinks, menu.Drink{Size: menu.ParseDrinkSize(d.DrinkSize), Flavor: d.DrinkName})
	}
	return in
}

func toOrderResponse(o models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			Type:        string(item.Type),
			Description: item.Description,
			PriceCents:  item.PriceCents,
		})
	}
	return orderResponse{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		Status:       string(o.Status),
		StatusLabel:  o.Status.DisplayName(),
		Items:        items,
		ItemCount:    len(items),
		TotalCents:   o.TotalCents(),
		Total:        models.FormatCents(o.TotalCents()),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}
