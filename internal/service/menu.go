package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/cache"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/pricing"
	"github.com/momohouse/pos/internal/store"
	"github.com/rs/zerolog"
)

// Errors returned by the menu service.
var (
	ErrMenuNameRequired     = errors.New("name is required")
	ErrMenuCategoryRequired = errors.New("category is required")
	ErrMenuNoValidPortion   = errors.New("at least one portion with a price above zero is required")
	ErrMenuItemUnavailable  = errors.New("menu item is not available")
)

// MenuService manages the catalog. Reads go through the cache; every write
// invalidates it.
type MenuService struct {
	store  store.MenuStore
	cache  cache.MenuCache
	logger zerolog.Logger
}

// NewMenuService creates a new MenuService.
func NewMenuService(s store.MenuStore, c cache.MenuCache, logger zerolog.Logger) *MenuService {
	return &MenuService{
		store:  s,
		cache:  c,
		logger: logger.With().Str("component", "menu").Logger(),
	}
}

// List returns every menu item, available or not.
func (s *MenuService) List(ctx context.Context) ([]model.MenuItem, error) {
	items, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("menu cache read failed, loading from store")
	}
	if ok {
		return items, nil
	}

	items, err = s.store.ListMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, items); err != nil {
		s.logger.Warn().Err(err).Msg("menu cache write failed")
	}
	return items, nil
}

// ListAvailable returns only the items customers can order.
func (s *MenuService) ListAvailable(ctx context.Context) ([]model.MenuItem, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]model.MenuItem, 0, len(items))
	for _, item := range items {
		if item.Available {
			available = append(available, item)
		}
	}
	return available, nil
}

func (s *MenuService) Get(ctx context.Context, id uuid.UUID) (model.MenuItem, error) {
	return s.store.GetMenuItem(ctx, id)
}

func (s *MenuService) Create(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	item.ID = uuid.Nil
	if err := validateMenuItem(&item); err != nil {
		return model.MenuItem{}, err
	}
	created, err := s.store.CreateMenuItem(ctx, item)
	if err != nil {
		return model.MenuItem{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *MenuService) Update(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	if err := validateMenuItem(&item); err != nil {
		return model.MenuItem{}, err
	}
	updated, err := s.store.UpdateMenuItem(ctx, item)
	if err != nil {
		return model.MenuItem{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// SetAvailable toggles whether an item can be ordered.
func (s *MenuService) SetAvailable(ctx context.Context, id uuid.UUID, available bool) (model.MenuItem, error) {
	item, err := s.store.GetMenuItem(ctx, id)
	if err != nil {
		return model.MenuItem{}, err
	}
	item.Available = available
	updated, err := s.store.UpdateMenuItem(ctx, item)
	if err != nil {
		return model.MenuItem{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *MenuService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *MenuService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Error().Err(err).Msg("menu cache invalidate failed")
	}
}

// validateMenuItem trims the text fields and checks the minimum a sellable
// item needs. Invalid portions alongside a valid one are kept as entered.
func validateMenuItem(item *model.MenuItem) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)

	if item.Name == "" {
		return ErrMenuNameRequired
	}
	if item.Category == "" {
		return ErrMenuCategoryRequired
	}
	if len(pricing.ValidPortions(*item)) == 0 {
		return fmt.Errorf("%s: %w", item.Name, ErrMenuNoValidPortion)
	}
	return nil
}
