package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/model"
)

// Memory is an in-process Store used when no database is configured and in
// tests. Records are copied in and out so callers never share state with it.
type Memory struct {
	mu       sync.RWMutex
	menu     map[uuid.UUID]model.MenuItem
	orders   map[uuid.UUID]model.Order
	numbers  map[string]uuid.UUID
	sequence int
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		menu:    make(map[uuid.UUID]model.MenuItem),
		orders:  make(map[uuid.UUID]model.Order),
		numbers: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (m *Memory) ListMenuItems(ctx context.Context) ([]model.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]model.MenuItem, 0, len(m.menu))
	for _, item := range m.menu {
		items = append(items, cloneMenuItem(item))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (m *Memory) GetMenuItem(ctx context.Context, id uuid.UUID) (model.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.menu[id]
	if !ok {
		return model.MenuItem{}, fmt.Errorf("menu item %s: %w", id, ErrNotFound)
	}
	return cloneMenuItem(item), nil
}

func (m *Memory) CreateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if _, exists := m.menu[item.ID]; exists {
		return model.MenuItem{}, fmt.Errorf("menu item %s: %w", item.ID, ErrConflict)
	}
	now := m.now()
	item.CreatedAt, item.UpdatedAt = now, now
	m.menu[item.ID] = cloneMenuItem(item)
	return item, nil
}

func (m *Memory) UpdateMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.menu[item.ID]
	if !ok {
		return model.MenuItem{}, fmt.Errorf("menu item %s: %w", item.ID, ErrNotFound)
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = m.now()
	m.menu[item.ID] = cloneMenuItem(item)
	return item, nil
}

func (m *Memory) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.menu[id]; !ok {
		return fmt.Errorf("menu item %s: %w", id, ErrNotFound)
	}
	delete(m.menu, id)
	return nil
}

func (m *Memory) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []model.Order
	for _, o := range m.orders {
		if f.match(o) {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].Sequence > orders[j].Sequence
	})
	if f.Limit > 0 && len(orders) > f.Limit {
		orders = orders[:f.Limit]
	}
	return orders, nil
}

func (m *Memory) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (m *Memory) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if _, taken := m.numbers[o.OrderNumber]; taken {
		return model.Order{}, fmt.Errorf("order number %s: %w", o.OrderNumber, ErrConflict)
	}
	if _, exists := m.orders[o.ID]; exists {
		return model.Order{}, fmt.Errorf("order %s: %w", o.ID, ErrConflict)
	}
	now := m.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	m.orders[o.ID] = cloneOrder(o)
	m.numbers[o.OrderNumber] = o.ID
	if o.Sequence > m.sequence {
		m.sequence = o.Sequence
	}
	return o, nil
}

func (m *Memory) UpdateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.orders[o.ID]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", o.ID, ErrNotFound)
	}
	if existing.OrderNumber != o.OrderNumber {
		if _, taken := m.numbers[o.OrderNumber]; taken {
			return model.Order{}, fmt.Errorf("order number %s: %w", o.OrderNumber, ErrConflict)
		}
		delete(m.numbers, existing.OrderNumber)
		m.numbers[o.OrderNumber] = o.ID
	}
	o.CreatedAt = existing.CreatedAt
	o.UpdatedAt = m.now()
	m.orders[o.ID] = cloneOrder(o)
	return o, nil
}

func (m *Memory) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	delete(m.orders, id)
	delete(m.numbers, o.OrderNumber)
	return nil
}

// NextOrderSequence returns one past the highest sequence ever stored.
// Concurrent callers may get the same value; CreateOrder rejects the loser.
func (m *Memory) NextOrderSequence(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sequence + 1, nil
}

func (m *Memory) HasOrderForPhone(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.Customer.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

// cloneMenuItem deep-copies through JSON, which is also how records travel
// through the Postgres store, so both stores read back the same shape.
func cloneMenuItem(item model.MenuItem) model.MenuItem {
	var out model.MenuItem
	b, err := json.Marshal(item)
	if err != nil || json.Unmarshal(b, &out) != nil {
		return item
	}
	return out
}

func cloneOrder(o model.Order) model.Order {
	out := o
	out.Items = make([]model.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	for i, item := range out.Items {
		if item.MenuItemID != nil {
			id := *item.MenuItemID
			out.Items[i].MenuItemID = &id
		}
	}
	return out
}
