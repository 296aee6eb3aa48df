package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/hungrypanda/internal/domain/cart"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
)

func newTestStore(t *testing.T, ttl time.Duration) (*CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartStore(client, ttl), mr
}

func TestCartStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	_, err := s.Get(context.Background(), "u1")
	require.ErrorIs(t, err, cart.ErrNoSnapshot)
}

func put(data string) func([]byte) ([]byte, error) {
	return func([]byte) ([]byte, error) { return []byte(data), nil }
}

func TestCartStore_UpdateGetDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)

	require.NoError(t, s.Update(ctx, "u1", put(`{"items":[]}`)))
	assert.True(t, mr.Exists("cart:u1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:u1"))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(got))

	require.NoError(t, s.Delete(ctx, "u1"))
	assert.False(t, mr.Exists("cart:u1"))
	require.NoError(t, s.Delete(ctx, "u1"))
}

func TestCartStore_UpdateSeesCurrentValue(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)

	var seen [][]byte
	record := func(next []byte) func([]byte) ([]byte, error) {
		return func(data []byte) ([]byte, error) {
			seen = append(seen, data)
			return next, nil
		}
	}

	require.NoError(t, s.Update(ctx, "u1", record([]byte("a"))))
	require.NoError(t, s.Update(ctx, "u1", record(nil)))
	assert.Equal(t, [][]byte{nil, []byte("a")}, seen)
	assert.False(t, mr.Exists("cart:u1"))
}

func TestCartStore_UpdateAbortKeepsValue(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)
	require.NoError(t, mr.Set("cart:u1", "before"))

	boom := errors.New("boom")
	err := s.Update(ctx, "u1", func([]byte) ([]byte, error) { return []byte("after"), boom })
	require.ErrorIs(t, err, boom)

	got, err := mr.Get("cart:u1")
	require.NoError(t, err)
	assert.Equal(t, "before", got)
}

func TestCartStore_UpdateRetriesAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)
	require.NoError(t, mr.Set("cart:u1", "1"))

	var calls int
	err := s.Update(ctx, "u1", func(data []byte) ([]byte, error) {
		calls++
		if calls == 1 {
			// Another request writes between our read and our commit.
			require.NoError(t, s.client.Set(ctx, "cart:u1", "2", 0).Err())
		}
		return append(data, '+'), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	got, err := mr.Get("cart:u1")
	require.NoError(t, err)
	assert.Equal(t, "2+", got)
}

func TestCartStore_Expires(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Minute)

	require.NoError(t, s.Update(ctx, "u1", put("x")))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "u1")
	require.ErrorIs(t, err, cart.ErrNoSnapshot)
}

func TestCartStore_DefaultTTL(t *testing.T) {
	s, _ := newTestStore(t, 0)
	assert.Equal(t, DefaultCartTTL, s.ttl)
}

func TestCartStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	s := NewCartStore(client, time.Hour)

	_, err := s.Get(context.Background(), "u1")
	require.Error(t, err)
	require.NotErrorIs(t, err, cart.ErrNoSnapshot)
	require.Error(t, s.Ping(context.Background()))
}

func TestCartStore_Ping(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	require.NoError(t, s.Ping(context.Background()))
}

type staticMenu map[string]*catalog.MenuItem

func (m staticMenu) GetMenuItem(_ context.Context, id string) (*catalog.MenuItem, error) {
	return m[id], nil
}

func TestCartStore_WithManager(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Hour)
	mgr := cart.NewManager(s, staticMenu{
		"burger": {ID: "burger", Name: "Burger", Price: decimal.RequireFromString("5.00"), RestaurantID: "A"},
	})

	_, err := mgr.AddItem(ctx, "u1", "burger", 2, cart.AddOptions{})
	require.NoError(t, err)

	c, err := mgr.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.TotalItems())
	assert.Equal(t, "10.00", c.TotalAmount().StringFixed(2))

	require.NoError(t, mr.Set("cart:u2", "garbage"))
	c, err = mgr.Load(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.False(t, mr.Exists("cart:u2"))
}

func TestCartStore_ConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	mgr := cart.NewManager(s, staticMenu{
		"burger": {ID: "burger", Name: "Burger", Price: decimal.RequireFromString("5.00"), RestaurantID: "A"},
		"fries":  {ID: "fries", Name: "Fries", Price: decimal.RequireFromString("2.50"), RestaurantID: "A"},
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		item := "burger"
		if i%2 == 1 {
			item = "fries"
		}
		wg.Go(func() {
			_, err := mgr.AddItem(ctx, "u1", item, 1, cart.AddOptions{})
			errs <- err
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	c, err := mgr.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, workers, c.TotalItems())
	assert.Len(t, c.Items(), 2)
	assert.Equal(t, "30.00", c.TotalAmount().StringFixed(2))
}

func TestCartStore_CheckoutKeepsConcurrentAdd(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	mgr := cart.NewManager(s, staticMenu{
		"burger": {ID: "burger", Name: "Burger", Price: decimal.RequireFromString("5.00"), RestaurantID: "A"},
		"fries":  {ID: "fries", Name: "Fries", Price: decimal.RequireFromString("2.50"), RestaurantID: "A"},
	})
	_, err := mgr.AddItem(ctx, "u1", "burger", 2, cart.AddOptions{})
	require.NoError(t, err)

	var ordered []cart.Line
	err = mgr.Checkout(ctx, "u1", func(ctx context.Context, lines []cart.Line) error {
		ordered = lines
		// Lands after the order is built and before the cart is cleared.
		_, err := mgr.AddItem(ctx, "u1", "fries", 1, cart.AddOptions{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []cart.Line{{MenuItemID: "burger", Quantity: 2}}, ordered)

	c, err := mgr.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items(), 1)
	assert.Equal(t, "fries", c.Items()[0].MenuItem.ID)
	assert.Equal(t, 1, c.TotalItems())
}
