package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mossline/pos-engine/internal/cart"
)

// Source is the persistence behind the service.
type Source interface {
	List(ctx context.Context, storeID string) ([]Item, error)
	Get(ctx context.Context, storeID, itemID string) (Item, error)
}

// Service serves catalog reads through a Redis cache and resolves cart
// lines at server-side prices.
type Service struct {
	Source Source
	Cache  *Cache
	Logger zerolog.Logger
}

func listKey(storeID string) string {
	return "pos:catalog:" + storeID
}

// List returns the active catalog, cache-first.
func (s *Service) List(ctx context.Context, storeID string) ([]Item, error) {
	if s == nil || s.Source == nil {
		return nil, fmt.Errorf("catalog service not configured")
	}
	var cached []Item
	if s.Cache != nil {
		hit, err := s.Cache.GetJSON(ctx, listKey(storeID), &cached)
		if err != nil {
			s.Logger.Warn().Err(err).Str("store_id", storeID).Msg("catalog cache read")
		} else if hit {
			return cached, nil
		}
	}
	items, err := s.Source.List(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, listKey(storeID), items); err != nil {
			s.Logger.Warn().Err(err).Str("store_id", storeID).Msg("catalog cache write")
		}
	}
	return items, nil
}

// Invalidate drops the cached catalog after an edit.
func (s *Service) Invalidate(ctx context.Context, storeID string) {
	if s == nil || s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, listKey(storeID)); err != nil {
		s.Logger.Warn().Err(err).Str("store_id", storeID).Msg("catalog cache invalidate")
	}
}

// Resolve builds a cart line for an item at catalog prices. The variation
// price, when selected, replaces the base price; modifier prices stack on
// top per unit. Quantity and weight come from the caller, prices never do.
func (s *Service) Resolve(ctx context.Context, storeID, itemID, variationID string, modifierIDs []string, quantity int, weight *float64) (cart.LineItem, error) {
	if s == nil || s.Source == nil {
		return cart.LineItem{}, fmt.Errorf("catalog service not configured")
	}
	item, err := s.Source.Get(ctx, storeID, itemID)
	if err != nil {
		return cart.LineItem{}, err
	}

	line := cart.LineItem{
		ItemID:     item.ID,
		CategoryID: item.CategoryID,
		Name:       item.Name,
		UnitPrice:  item.Price,
		Quantity:   quantity,
	}
	if variationID != "" {
		v, ok := item.Variation(variationID)
		if !ok {
			return cart.LineItem{}, fmt.Errorf("%w: variation %s", ErrItemNotFound, variationID)
		}
		line.VariationID = v.ID
		line.Name = item.Name + " " + v.Name
		line.UnitPrice = v.Price
	}
	for _, id := range modifierIDs {
		m, ok := item.Modifier(id)
		if !ok {
			return cart.LineItem{}, fmt.Errorf("%w: modifier %s", ErrItemNotFound, id)
		}
		line.Modifiers = append(line.Modifiers, cart.Modifier{ID: m.ID, Name: m.Name, PriceAdjustment: m.Price})
	}
	if item.SoldByWeight {
		if weight == nil || *weight <= 0 {
			return cart.LineItem{}, fmt.Errorf("item %s is sold by weight", item.ID)
		}
		line.Weight = weight
		line.Quantity = 0
	} else if quantity <= 0 {
		line.Quantity = 1
	}
	return line, nil
}
