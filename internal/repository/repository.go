package repository

import (
	"context"
	"errors"
	"time"

	"campusdelivery/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrLoginIDTaken    = errors.New("login id already registered")
	ErrOrderNotFound   = errors.New("order not found")
)

// CredentialStore persists accounts. Lookups report absence with
// ErrAccountNotFound. Update and UpdateByResetTokenHash hold the record
// for the whole read-modify-write; if fn returns an error nothing is
// written and that error is returned unchanged.
type CredentialStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByLoginID(ctx context.Context, loginID string) (models.Account, error)
	ExistsByLoginID(ctx context.Context, loginID string) (bool, error)
	FindByResetTokenHash(ctx context.Context, hash []byte) (models.Account, error)
	Update(ctx context.Context, id string, fn func(*models.Account) error) (models.Account, error)
	UpdateByResetTokenHash(ctx context.Context, hash []byte, fn func(*models.Account) error) (models.Account, error)
}

// OrderRepository persists orders with their items. List results are
// ordered by creation time, oldest first.
type OrderRepository interface {
	Create(ctx context.Context, order models.Order) error
	FindByID(ctx context.Context, id string) (models.Order, error)
	FindByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error)
	FindByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	Update(ctx context.Context, id string, fn func(*models.Order) error) (models.Order, error)
}
