package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/momohouse/pos/internal/model"
)

// DBTX is the query surface shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres keeps each record as a JSON document. The few columns that are
// filtered or constrained on are duplicated alongside it. Menu documents are
// stored as plain JSON so price portions keep their order.
type Postgres struct {
	db DBTX
}

func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// --- Menu ---

const listMenuItems = `SELECT doc, created_at, updated_at FROM menu_items ORDER BY category, name`

func (p *Postgres) ListMenuItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := p.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

const getMenuItem = `SELECT doc, created_at, updated_at FROM menu_items WHERE id = $1`

func (p *Postgres) GetMenuItem(ctx context.Context, id uuid.UUID) (model.MenuItem, error) {
	item, err := scanMenuItem(p.db.QueryRow(ctx, getMenuItem, id))
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("menu item %s: %w", id, err)
	}
	return item, nil
}

const createMenuItem = `INSERT INTO menu_items (id, name, category, available, doc)
VALUES ($1, $2, $3, $4, $5)
RETURNING doc, created_at, updated_at`

func (p *Postgres) CreateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	doc, err := json.Marshal(item)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("encode menu item: %w", err)
	}
	created, err := scanMenuItem(p.db.QueryRow(ctx, createMenuItem,
		item.ID, item.Name, item.Category, item.Available, doc))
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}
	return created, nil
}

const updateMenuItem = `UPDATE menu_items
SET name = $2, category = $3, available = $4, doc = $5, updated_at = now()
WHERE id = $1
RETURNING doc, created_at, updated_at`

func (p *Postgres) UpdateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	doc, err := json.Marshal(item)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("encode menu item: %w", err)
	}
	updated, err := scanMenuItem(p.db.QueryRow(ctx, updateMenuItem,
		item.ID, item.Name, item.Category, item.Available, doc))
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("menu item %s: %w", item.ID, err)
	}
	return updated, nil
}

const deleteMenuItem = `DELETE FROM menu_items WHERE id = $1`

func (p *Postgres) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, deleteMenuItem, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("menu item %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Orders ---

func (p *Postgres) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT doc, created_at, updated_at FROM orders")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, sequence DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := p.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

const getOrder = `SELECT doc, created_at, updated_at FROM orders WHERE id = $1`

func (p *Postgres) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	o, err := scanOrder(p.db.QueryRow(ctx, getOrder, id))
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	return o, nil
}

const createOrder = `INSERT INTO orders (id, order_number, sequence, status, source, customer_phone, is_paid, doc, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
RETURNING doc, created_at, updated_at`

func (p *Postgres) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return model.Order{}, fmt.Errorf("encode order: %w", err)
	}
	var createdAt any
	if !o.CreatedAt.IsZero() {
		createdAt = o.CreatedAt
	}
	created, err := scanOrder(p.db.QueryRow(ctx, createOrder,
		o.ID, o.OrderNumber, o.Sequence, o.Status, o.Source, o.Customer.Phone, o.IsPaid, doc, createdAt))
	if err != nil {
		if isOrderNumberConflict(err) {
			return model.Order{}, fmt.Errorf("order number %s: %w", o.OrderNumber, ErrConflict)
		}
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}
	return created, nil
}

const updateOrder = `UPDATE orders
SET order_number = $2, sequence = $3, status = $4, source = $5, customer_phone = $6, is_paid = $7, doc = $8, updated_at = now()
WHERE id = $1
RETURNING doc, created_at, updated_at`

func (p *Postgres) UpdateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return model.Order{}, fmt.Errorf("encode order: %w", err)
	}
	updated, err := scanOrder(p.db.QueryRow(ctx, updateOrder,
		o.ID, o.OrderNumber, o.Sequence, o.Status, o.Source, o.Customer.Phone, o.IsPaid, doc))
	if err != nil {
		if isOrderNumberConflict(err) {
			return model.Order{}, fmt.Errorf("order number %s: %w", o.OrderNumber, ErrConflict)
		}
		return model.Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	return updated, nil
}

const deleteOrder = `DELETE FROM orders WHERE id = $1`

func (p *Postgres) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

const nextOrderSequence = `SELECT COALESCE(MAX(sequence), 0) + 1 FROM orders`

func (p *Postgres) NextOrderSequence(ctx context.Context) (int, error) {
	var next int
	if err := p.db.QueryRow(ctx, nextOrderSequence).Scan(&next); err != nil {
		return 0, fmt.Errorf("next order sequence: %w", err)
	}
	return next, nil
}

const hasOrderForPhone = `SELECT EXISTS (SELECT 1 FROM orders WHERE customer_phone = $1)`

func (p *Postgres) HasOrderForPhone(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	var exists bool
	if err := p.db.QueryRow(ctx, hasOrderForPhone, phone).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup customer phone: %w", err)
	}
	return exists, nil
}

// --- Helpers ---

func scanMenuItem(row pgx.Row) (model.MenuItem, error) {
	var (
		doc  []byte
		item model.MenuItem
	)
	if err := row.Scan(&doc, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return model.MenuItem{}, mapNoRows(err)
	}
	createdAt, updatedAt := item.CreatedAt, item.UpdatedAt
	if err := json.Unmarshal(doc, &item); err != nil {
		return model.MenuItem{}, fmt.Errorf("decode menu item: %w", err)
	}
	item.CreatedAt, item.UpdatedAt = createdAt, updatedAt
	return item, nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		doc []byte
		o   model.Order
	)
	if err := row.Scan(&doc, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return model.Order{}, mapNoRows(err)
	}
	createdAt, updatedAt := o.CreatedAt, o.UpdatedAt
	if err := json.Unmarshal(doc, &o); err != nil {
		return model.Order{}, fmt.Errorf("decode order: %w", err)
	}
	o.CreatedAt, o.UpdatedAt = createdAt, updatedAt
	return o, nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}
