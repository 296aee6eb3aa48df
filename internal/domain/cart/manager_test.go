package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

// --- Mock implementations ---

type memStore struct {
	data      map[string][]byte
	getErr    error
	deleteErr error
	deletes   int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	b, ok := s.data[key]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return b, nil
}

func (s *memStore) Update(_ context.Context, key string, fn func([]byte) ([]byte, error)) error {
	if s.getErr != nil {
		return s.getErr
	}
	next, err := fn(s.data[key])
	if err != nil {
		return err
	}
	if next == nil {
		delete(s.data, key)
		return nil
	}
	s.data[key] = next
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.data, key)
	return nil
}

type mockMenu map[string]*catalog.MenuItem

func (m mockMenu) GetMenuItem(_ context.Context, id string) (*catalog.MenuItem, error) {
	it, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("menu item", id)
	}
	return it, nil
}

func testMenu() mockMenu {
	return mockMenu{
		"burger": {ID: "burger", Name: "Burger", Price: decimal.RequireFromString("5.00"), RestaurantID: "A"},
		"fries":  {ID: "fries", Name: "Fries", Price: decimal.RequireFromString("2.50"), RestaurantID: "A"},
		"pizza":  {ID: "pizza", Name: "Pizza", Price: decimal.RequireFromString("11.00"), RestaurantID: "B"},
	}
}

// --- Tests ---

func TestManager_LoadMissing(t *testing.T) {
	m := NewManager(newMemStore(), testMenu())

	c, err := m.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestManager_LoadCorruptDiscards(t *testing.T) {
	store := newMemStore()
	store.data["u1"] = []byte(`{"items":[{"id":"x","quantity":-1}]}`)
	m := NewManager(store, testMenu())

	c, err := m.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.NotContains(t, store.data, "u1")
}

func TestManager_LoadStoreFailure(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	m := NewManager(store, testMenu())

	_, err := m.Load(context.Background(), "u1")
	assert.True(t, apperr.IsTransient(err))
}

func TestManager_AddPersists(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, testMenu())

	_, err := m.AddItem(ctx, "u1", "burger", 2, AddOptions{})
	require.NoError(t, err)
	_, err = m.AddItem(ctx, "u1", "fries", 1, AddOptions{})
	require.NoError(t, err)

	reloaded, err := m.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.TotalItems())
	assert.Equal(t, "12.50", reloaded.TotalAmount().StringFixed(2))
}

func TestManager_AddUnknownItem(t *testing.T) {
	m := NewManager(newMemStore(), testMenu())

	_, err := m.AddItem(context.Background(), "u1", "ghost", 1, AddOptions{})
	assert.True(t, apperr.IsNotFound(err))
}

func TestManager_ConflictDoesNotSave(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, testMenu())

	_, err := m.AddItem(ctx, "u1", "burger", 1, AddOptions{})
	require.NoError(t, err)
	before := string(store.data["u1"])

	_, err = m.AddItem(ctx, "u1", "pizza", 1, AddOptions{})
	var rc *RestaurantConflictError
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, before, string(store.data["u1"]))
}

func TestManager_RemovingLastLineDeletesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, testMenu())

	c, err := m.AddItem(ctx, "u1", "burger", 1, AddOptions{})
	require.NoError(t, err)
	id := c.Items()[0].ID

	_, err = m.UpdateQuantity(ctx, "u1", id, 0)
	require.NoError(t, err)
	assert.NotContains(t, store.data, "u1")
}

func TestManager_ClearFailure(t *testing.T) {
	store := newMemStore()
	store.deleteErr = errors.New("timeout")
	m := NewManager(store, testMenu())

	err := m.Clear(context.Background(), "u1")
	assert.True(t, apperr.IsTransient(err))
}

func TestManager_Checkout(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, testMenu())

	_, err := m.AddItem(ctx, "u1", "burger", 2, AddOptions{})
	require.NoError(t, err)
	_, err = m.AddItem(ctx, "u1", "fries", 1, AddOptions{})
	require.NoError(t, err)

	var got []Line
	err = m.Checkout(ctx, "u1", func(_ context.Context, lines []Line) error {
		got = lines
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Line{{MenuItemID: "burger", Quantity: 2}, {MenuItemID: "fries", Quantity: 1}}, got)
	assert.NotContains(t, store.data, "u1")
}

func TestManager_CheckoutFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, testMenu())

	_, err := m.AddItem(ctx, "u1", "burger", 1, AddOptions{})
	require.NoError(t, err)

	placeErr := errors.New("db down")
	err = m.Checkout(ctx, "u1", func(context.Context, []Line) error { return placeErr })
	require.ErrorIs(t, err, placeErr)
	assert.Contains(t, store.data, "u1")
}

func TestManager_CheckoutEmpty(t *testing.T) {
	called := false
	m := NewManager(newMemStore(), testMenu())

	err := m.Checkout(context.Background(), "u1", func(context.Context, []Line) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.False(t, called)
}

func TestManager_StoreFailureIsTransient(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	m := NewManager(store, testMenu())

	_, err := m.AddItem(context.Background(), "u1", "burger", 1, AddOptions{})
	assert.True(t, apperr.IsTransient(err))
}

func TestManager_QuantityLimitKeepsCart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, testMenu())

	_, err := m.AddItem(ctx, "u1", "burger", pricing.MaxQuantity, AddOptions{})
	require.NoError(t, err)
	_, err = m.AddItem(ctx, "u1", "burger", pricing.MaxQuantity, AddOptions{})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)

	c, err := m.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, pricing.MaxQuantity, c.TotalItems())
}

func TestManager_CheckoutKeepsItemsAddedMeanwhile(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m := NewManager(store, testMenu())

	_, err := m.AddItem(ctx, "u1", "burger", 2, AddOptions{})
	require.NoError(t, err)

	err = m.Checkout(ctx, "u1", func(ctx context.Context, _ []Line) error {
		_, err := m.AddItem(ctx, "u1", "burger", 1, AddOptions{})
		if err != nil {
			return err
		}
		_, err = m.AddItem(ctx, "u1", "fries", 1, AddOptions{})
		return err
	})
	require.NoError(t, err)

	c, err := m.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Line{{MenuItemID: "burger", Quantity: 1}, {MenuItemID: "fries", Quantity: 1}}, c.Lines())
}
