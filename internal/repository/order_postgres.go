package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusdelivery/internal/models"
)

const orderColumns = `id, customer_id, customer_name, status, created_at, updated_at`

type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order models.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO orders (id, customer_id, customer_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query,
		order.ID,
		order.CustomerID,
		order.CustomerName,
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := replaceItems(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresOrderRepository) FindByID(ctx context.Context, id string) (models.Order, error) {
	orders, err := r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return models.Order{}, err
	}
	if len(orders) == 0 {
		return models.Order{}, ErrOrderNotFound
	}
	return orders[0], nil
}

func (r *PostgresOrderRepository) FindByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ANY($1) ORDER BY created_at, id`, names)
}

func (r *PostgresOrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at, id`, customerID)
}

func (r *PostgresOrderRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return r.query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at, id`,
		string(models.OrderPending), cutoff)
}

func (r *PostgresOrderRepository) Update(ctx context.Context, id string, fn func(*models.Order) error) (models.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return models.Order{}, err
	}
	items, err := loadItems(ctx, tx, []string{order.ID})
	if err != nil {
		return models.Order{}, err
	}
	order.Items = items[order.ID]

	if err := fn(&order); err != nil {
		return models.Order{}, err
	}

	const query = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, query, order.ID, string(order.Status), order.UpdatedAt); err != nil {
		return models.Order{}, fmt.Errorf("update order: %w", err)
	}
	if err := replaceItems(ctx, tx, order); err != nil {
		return models.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("commit: %w", err)
	}
	return order, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresOrderRepository) query(ctx context.Context, sql string, args ...any) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if found, ok := items[orders[i].ID]; ok {
			orders[i].Items = found
		}
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		order  models.Order
		status string
	)
	if err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.CustomerName,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	order.Status = models.OrderStatus(status)
	order.Items = []models.OrderItem{}
	return order, nil
}

func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]models.OrderItem, error) {
	const query = `
		SELECT order_id, item_type, description, price_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`

	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID  string
			itemType string
			item     models.OrderItem
		)
		if err := rows.Scan(&orderID, &itemType, &item.Description, &item.PriceCents); err != nil {
			return nil, err
		}
		item.Type = models.ItemType(itemType)
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

func replaceItems(ctx context.Context, tx pgx.Tx, order models.Order) error {
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("clear order items: %w", err)
	}
	if len(order.Items) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(order.Items))
	for i, item := range order.Items {
		rows = append(rows, []any{order.ID, i, string(item.Type), item.Description, item.PriceCents})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"order_id", "position", "item_type", "description", "price_cents"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}
