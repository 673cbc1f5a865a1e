package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/index"
)

type stubIndex struct{}

func (stubIndex) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	return nil, nil
}

func (stubIndex) Len() int { return 1 }

type fakeClock struct {
	mtx sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func draft(class Class) Draft {
	return Draft{
		Name:     "lease.pdf",
		Text:     "rent is due",
		Passages: []chunker.Passage{{Index: 0, Text: "rent is due", Length: 11}},
		Index:    stubIndex{},
		Class:    class,
		Owner:    "203.0.113.7",
	}
}

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(WithClock(clock.Now))

	created, err := store.Create(ctx, draft(ClassGuest))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, clock.now, created.CreatedAt)
	assert.True(t, created.Evictable)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, 1, store.Len())
}

func TestGet_Unknown(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_PreMintedID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	d := draft(ClassMember)
	d.ID = NewID()

	created, err := store.Create(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, d.ID, created.ID)

	_, err = store.Create(ctx, d)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreate_Incomplete(t *testing.T) {
	d := draft(ClassGuest)
	d.Index = nil

	_, err := NewMemoryStore().Create(context.Background(), d)
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestCreate_CanceledLeavesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	_, err := store.Create(ctx, draft(ClassGuest))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestEvictExpired_GuestLifetime(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	store := NewMemoryStore(WithClock(clock.Now))

	s, err := store.Create(ctx, draft(ClassGuest))
	require.NoError(t, err)

	assert.Equal(t, 0, store.EvictExpired(ctx, t0.Add(23*time.Hour)))
	_, err = store.Get(ctx, s.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, store.EvictExpired(ctx, t0.Add(25*time.Hour)))
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvictExpired_ClassTable(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	store := NewMemoryStore(WithClock(clock.Now))

	demo, err := store.Create(ctx, draft(ClassDemo))
	require.NoError(t, err)
	assert.False(t, demo.Evictable)

	member, err := store.Create(ctx, draft(ClassMember))
	require.NoError(t, err)

	store.EvictExpired(ctx, t0.Add(6*24*time.Hour))
	_, err = store.Get(ctx, member.ID)
	require.NoError(t, err)

	store.EvictExpired(ctx, t0.Add(8*24*time.Hour))
	_, err = store.Get(ctx, member.ID)
	require.ErrorIs(t, err, ErrNotFound)

	store.EvictExpired(ctx, t0.Add(10*365*24*time.Hour))
	_, err = store.Get(ctx, demo.ID)
	require.NoError(t, err)
}

func TestEvictExpired_CustomTTL(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	store := NewMemoryStore(WithClock(clock.Now), WithTTL(ClassGuest, time.Hour))

	_, err := store.Create(ctx, draft(ClassGuest))
	require.NoError(t, err)

	assert.Equal(t, 1, store.EvictExpired(ctx, t0.Add(2*time.Hour)))
}

func TestEvictExpired_ReaderKeepsSession(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	store := NewMemoryStore(WithClock(clock.Now))

	created, err := store.Create(ctx, draft(ClassGuest))
	require.NoError(t, err)

	held, err := store.Get(ctx, created.ID)
	require.NoError(t, err)

	store.EvictExpired(ctx, t0.Add(48*time.Hour))

	assert.Equal(t, "rent is due", held.Text)
	assert.Equal(t, 1, held.Index.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	store := NewMemoryStore(WithClock(clock.Now))

	var wg sync.WaitGroup
	ids := make(chan string, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := draft(ClassGuest)
			d.ID = fmt.Sprintf("session-%d", i)
			s, err := store.Create(ctx, d)
			if assert.NoError(t, err) {
				ids <- s.ID
			}
		}(i)
	}

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.EvictExpired(ctx, t0.Add(time.Hour))
		}()
	}

	wg.Wait()
	close(ids)

	for id := range ids {
		_, err := store.Get(ctx, id)
		assert.NoError(t, err)
	}
	assert.Equal(t, 64, store.Len())
}
