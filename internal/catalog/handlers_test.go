package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	items []Item
	calls int
}

func (m *memSource) List(context.Context, string) ([]Item, error) {
	m.calls++
	return m.items, nil
}

func (m *memSource) Get(_ context.Context, _, itemID string) (Item, error) {
	for _, it := range m.items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func testItems() []Item {
	return []Item{
		{
			ID: "latte", StoreID: "store1", CategoryID: "drinks", Name: "Latte", Price: 450, Active: true,
			Variations: []Variation{{ID: "lg", Name: "Large", Price: 525}},
			Modifiers:  []Modifier{{ID: "oat", Name: "Oat Milk", Price: 75}},
		},
		{ID: "salmon", StoreID: "store1", CategoryID: "fish", Name: "Salmon", Price: 1299, SoldByWeight: true, Active: true},
	}
}

func newCachedService(t *testing.T) (*Service, *memSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	src := &memSource{items: testItems()}
	return &Service{Source: src, Cache: NewCache(client, time.Minute), Logger: zerolog.Nop()}, src
}

func TestListCachesSecondRead(t *testing.T) {
	svc, src := newCachedService(t)
	ctx := context.Background()

	first, err := svc.List(ctx, "store1")
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, src.calls)

	second, err := svc.List(ctx, "store1")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, src.calls)

	svc.Invalidate(ctx, "store1")
	_, err = svc.List(ctx, "store1")
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestResolveBaseItem(t *testing.T) {
	svc, _ := newCachedService(t)

	line, err := svc.Resolve(context.Background(), "store1", "latte", "", nil, 2, nil)
	require.NoError(t, err)
	require.Equal(t, "Latte", line.Name)
	require.Equal(t, 2, line.Quantity)
	require.EqualValues(t, 450, line.UnitPrice)
}

func TestResolveVariationReplacesPrice(t *testing.T) {
	svc, _ := newCachedService(t)

	line, err := svc.Resolve(context.Background(), "store1", "latte", "lg", []string{"oat"}, 1, nil)
	require.NoError(t, err)
	require.Equal(t, "lg", line.VariationID)
	require.EqualValues(t, 525, line.UnitPrice)
	require.Len(t, line.Modifiers, 1)
	require.EqualValues(t, 600, line.EffectiveUnitPrice())
}

func TestResolveUnknownVariationFails(t *testing.T) {
	svc, _ := newCachedService(t)

	_, err := svc.Resolve(context.Background(), "store1", "latte", "xl", nil, 1, nil)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestResolveWeightedItemRequiresWeight(t *testing.T) {
	svc, _ := newCachedService(t)

	_, err := svc.Resolve(context.Background(), "store1", "salmon", "", nil, 1, nil)
	require.Error(t, err)

	w := 0.5
	line, err := svc.Resolve(context.Background(), "store1", "salmon", "", nil, 0, &w)
	require.NoError(t, err)
	require.NotNil(t, line.Weight)
	require.EqualValues(t, 650, line.Total())
}

func TestHandlerListAndGet(t *testing.T) {
	svc, _ := newCachedService(t)
	h := &Handler{Service: svc, StoreID: "store1"}

	r := chi.NewRouter()
	r.Get("/catalog", h.List)
	r.Get("/catalog/{itemId}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Latte")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/latte", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type failingSource struct{}

func (failingSource) List(context.Context, string) ([]Item, error) {
	return nil, errors.New("pg down")
}

func (failingSource) Get(context.Context, string, string) (Item, error) {
	return Item{}, errors.New("pg down")
}

func TestResolveSourceErrorPropagates(t *testing.T) {
	svc := &Service{Source: failingSource{}, Logger: zerolog.Nop()}
	_, err := svc.Resolve(context.Background(), "store1", "latte", "", nil, 1, nil)
	require.Error(t, err)
}
