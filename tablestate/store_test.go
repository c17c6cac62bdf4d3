package tablestate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/danthegoodman1/icetable/kvstore"
	"github.com/danthegoodman1/icetable/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingKV struct {
	getErr error
	setErr error
}

func (f failingKV) Get(context.Context, string) (string, error) { return "", f.getErr }
func (f failingKV) Set(context.Context, string, string) error  { return f.setErr }
func (f failingKV) Shutdown(context.Context) error             { return nil }

// ctxKV fails reads once the caller's context is done, like a network backend.
type ctxKV struct {
	*kvstore.MemoryKVStore
}

func (c ctxKV) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.MemoryKVStore.Get(ctx, key)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "table_visibility_users-table", StorageKey("users-table", FieldColumnVisibility))
	assert.Equal(t, "table_pageSize_users-table", StorageKey("users-table", FieldPageSize))
	assert.Equal(t, "", StorageKey("users-table", FieldSorting))
	assert.Equal(t, "", StorageKey("users-table", FieldRowSelection))
}

func TestGetDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemoryKVStore())
	defer s.Close(ctx)

	state := s.Get(ctx, "fresh")
	assert.Equal(t, DefaultState(), state)
	assert.Equal(t, 10, state.PageSize)
	assert.Empty(t, state.ColumnVisibility)
	assert.Empty(t, state.Sorting)
	assert.Empty(t, state.ColumnFilters)
	assert.Empty(t, state.RowSelection)
}

func TestDurableRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKVStore()

	s := NewStore(kv)
	s.Set(ctx, "users-table", Partial{
		PageSize:         ptr(25),
		ColumnVisibility: &table.ColumnVisibility{"email": false},
		Sorting:          &table.Sorting{{ColumnID: "name", Direction: table.SortAscending}},
		ColumnFilters:    &table.ColumnFilters{"role": "USER"},
		RowSelection:     &table.RowSelection{"3": true},
	})
	require.NoError(t, s.Close(ctx))

	raw, err := kv.Get(ctx, "table_pageSize_users-table")
	require.NoError(t, err)
	assert.Equal(t, "25", raw)
	raw, err = kv.Get(ctx, "table_visibility_users-table")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":false}`, raw)
	assert.Equal(t, 2, kv.Len(), "ephemeral fields must never reach the kv store")

	// a new store over the same kv is a restarted process
	restarted := NewStore(kv)
	defer restarted.Close(ctx)
	state := restarted.Get(ctx, "users-table")
	assert.Equal(t, 25, state.PageSize)
	assert.Equal(t, table.ColumnVisibility{"email": false}, state.ColumnVisibility)
	assert.Empty(t, state.Sorting)
	assert.Empty(t, state.ColumnFilters)
	assert.Empty(t, state.RowSelection)

	assert.Equal(t, 10, restarted.Get(ctx, "other-table").PageSize)
}

func TestMalformedDurableStateFallsBack(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKVStore()
	require.NoError(t, kv.Set(ctx, StorageKey("t", FieldPageSize), "not a number"))
	require.NoError(t, kv.Set(ctx, StorageKey("t", FieldColumnVisibility), "{broken"))
	require.NoError(t, kv.Set(ctx, StorageKey("zero", FieldPageSize), "0"))
	require.NoError(t, kv.Set(ctx, StorageKey("null", FieldColumnVisibility), "null"))

	s := NewStore(kv)
	defer s.Close(ctx)

	state := s.Get(ctx, "t")
	assert.Equal(t, 10, state.PageSize)
	assert.Equal(t, table.ColumnVisibility{}, state.ColumnVisibility)
	assert.Equal(t, 10, s.Get(ctx, "zero").PageSize)
	assert.NotNil(t, s.Get(ctx, "null").ColumnVisibility)
}

func TestKVFailuresNeverSurface(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := NewStore(failingKV{getErr: boom, setErr: boom})

	state := s.Get(ctx, "t")
	assert.Equal(t, 10, state.PageSize)

	s.Set(ctx, "t", Partial{PageSize: ptr(50)})
	assert.Equal(t, 50, s.Get(ctx, "t").PageSize)
	require.NoError(t, s.Close(ctx))
}

func TestSetIsPartialAndCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemoryKVStore())
	defer s.Close(ctx)

	filters := table.ColumnFilters{"role": "ADMIN"}
	s.Set(ctx, "t", Partial{ColumnFilters: &filters})
	s.Set(ctx, "t", Partial{Sorting: &table.Sorting{{ColumnID: "name", Direction: table.SortDescending}}})

	// mutating the caller's map after Set must not leak into the store
	filters["role"] = "USER"

	state := s.Get(ctx, "t")
	assert.Equal(t, table.ColumnFilters{"role": "ADMIN"}, state.ColumnFilters)
	assert.Equal(t, table.SortDescending, state.Sorting.Direction("name"))

	state.ColumnFilters["role"] = "changed"
	assert.Equal(t, "ADMIN", s.Get(ctx, "t").ColumnFilters["role"])
}

func TestNonPositivePageSizeUsesDefault(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemoryKVStore(), WithDefaultPageSize(20))
	defer s.Close(ctx)

	assert.Equal(t, 20, s.Get(ctx, "t").PageSize)
	s.Set(ctx, "t", Partial{PageSize: ptr(-3)})
	assert.Equal(t, 20, s.Get(ctx, "t").PageSize)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKVStore()
	s := NewStore(kv)

	s.Set(ctx, "t", Partial{
		PageSize:         ptr(50),
		ColumnVisibility: &table.ColumnVisibility{"a": false},
		RowSelection:     &table.RowSelection{"1": true},
	})
	s.Reset(ctx, "t", FieldColumnVisibility)
	s.Reset(ctx, "t", FieldRowSelection)

	state := s.Get(ctx, "t")
	assert.Empty(t, state.ColumnVisibility)
	assert.Empty(t, state.RowSelection)
	assert.Equal(t, 50, state.PageSize)

	s.Reset(ctx, "t", FieldPageSize)
	require.NoError(t, s.Close(ctx))

	raw, err := kv.Get(ctx, StorageKey("t", FieldColumnVisibility))
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
	raw, err = kv.Get(ctx, StorageKey("t", FieldPageSize))
	require.NoError(t, err)
	assert.Equal(t, "10", raw)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemoryKVStore())
	defer s.Close(ctx)

	var got []Field
	unsubscribe := s.Subscribe("t", FieldSorting, func(tableID string, field Field) {
		assert.Equal(t, "t", tableID)
		got = append(got, field)
	})
	s.Subscribe("t", FieldPageSize, func(_ string, field Field) {
		got = append(got, field)
	})
	s.Subscribe("other", FieldSorting, func(string, Field) {
		t.Fatal("listener of another table was notified")
	})

	s.Set(ctx, "t", Partial{Sorting: &table.Sorting{}, PageSize: ptr(5)})
	s.Set(ctx, "t", Partial{ColumnFilters: &table.ColumnFilters{}})
	assert.Equal(t, []Field{FieldPageSize, FieldSorting}, got)

	unsubscribe()
	unsubscribe()
	s.Set(ctx, "t", Partial{Sorting: &table.Sorting{}})
	assert.Equal(t, []Field{FieldPageSize, FieldSorting}, got)
}

func TestListenerSeesNewValue(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemoryKVStore())
	defer s.Close(ctx)

	var seen int
	s.Subscribe("t", FieldPageSize, func(tableID string, _ Field) {
		seen = s.Get(ctx, tableID).PageSize
	})
	s.Set(ctx, "t", Partial{PageSize: ptr(30)})
	assert.Equal(t, 30, seen)
}

func TestForgetDropsEphemeralKeepsDurable(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemoryKVStore())
	defer s.Close(ctx)

	s.Set(ctx, "t", Partial{PageSize: ptr(30), RowSelection: &table.RowSelection{"1": true}})
	s.Forget("t")

	// the page size write may still be queued; the reload must see it anyway
	state := s.Get(ctx, "t")
	assert.Equal(t, 30, state.PageSize)
	assert.Empty(t, state.RowSelection)
}

func TestConcurrentSetsLastWriterWins(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKVStore()
	s := NewStore(kv)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Set(ctx, "t", Partial{PageSize: ptr(n)})
			s.Set(ctx, "t", Partial{Sorting: &table.Sorting{{ColumnID: "c", Direction: table.SortAscending}}})
		}(i)
	}
	wg.Wait()
	final := s.Get(ctx, "t").PageSize
	require.NoError(t, s.Close(ctx))

	raw, err := kv.Get(ctx, StorageKey("t", FieldPageSize))
	require.NoError(t, err)
	assert.Equal(t, final, mustAtoi(t, raw), "stored value must match the last in-memory write")
	assert.Equal(t, table.SortAscending, s.Get(ctx, "t").Sorting.Direction("c"))
}

func TestSetAfterCloseKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemoryKVStore())
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))

	s.Set(ctx, "t", Partial{PageSize: ptr(5)})
	assert.Equal(t, 5, s.Get(ctx, "t").PageSize)
	assert.NoError(t, s.Flush(ctx))
}

func TestCancelledRequestStillLoadsDurableState(t *testing.T) {
	ctx := context.Background()
	kv := ctxKV{kvstore.NewMemoryKVStore()}
	require.NoError(t, kv.Set(ctx, StorageKey("users-table", FieldPageSize), "25"))
	require.NoError(t, kv.Set(ctx, StorageKey("users-table", FieldColumnVisibility), `{"email":false}`))

	s := NewStore(kv)
	defer s.Close(ctx)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	state := s.Get(cancelled, "users-table")
	assert.Equal(t, 25, state.PageSize)
	assert.Equal(t, table.ColumnVisibility{"email": false}, state.ColumnVisibility)

	// the cached entry keeps the stored values for later requests
	assert.Equal(t, 25, s.Get(ctx, "users-table").PageSize)
}
