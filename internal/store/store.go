// Package store persists menu items and orders.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	Status string
	Source string
	Since  time.Time
	Limit  int
}

func (f OrderFilter) match(o model.Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Source != "" && o.Source != f.Source {
		return false
	}
	if !f.Since.IsZero() && o.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

type MenuStore interface {
	ListMenuItems(ctx context.Context) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (model.MenuItem, error)
	CreateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
}

// OrderStore lists orders newest first. CreateOrder returns ErrConflict when
// the order number is taken.
type OrderStore interface {
	ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
	UpdateOrder(ctx context.Context, o model.Order) (model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	NextOrderSequence(ctx context.Context) (int, error)
	HasOrderForPhone(ctx context.Context, phone string) (bool, error)
}

// Store is everything the service layer persists. Satisfied by *Memory and
// *Postgres.
type Store interface {
	MenuStore
	OrderStore
}
