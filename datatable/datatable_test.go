package datatable

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/danthegoodman1/icetable/facet"
	"github.com/danthegoodman1/icetable/filtersort"
	"github.com/danthegoodman1/icetable/kvstore"
	"github.com/danthegoodman1/icetable/pagination"
	"github.com/danthegoodman1/icetable/table"
	"github.com/danthegoodman1/icetable/tablestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row = map[string]any

func testRows() []row {
	rows := make([]row, 25)
	for i := range rows {
		role := "USER"
		if i%5 == 0 {
			role = "ADMIN"
		}
		rows[i] = row{"id": i, "name": fmt.Sprintf("user%02d", i), "role": role, "email": fmt.Sprintf("u%d@x", i)}
	}
	return rows
}

func testColumns() table.Columns[row] {
	hidden := false
	return table.Columns[row]{
		{ID: "select", Accessor: func(row) any { return nil }},
		table.FilterableColumn(table.FilterableColumnConfig[row]{Key: "name"}),
		table.FilterableColumn(table.FilterableColumnConfig[row]{Key: "role"}),
		table.FilterableColumn(table.FilterableColumnConfig[row]{Key: "email", Visible: &hidden}),
	}
}

func newTable(t *testing.T, store *tablestate.Store, opts ...Option[row]) *Table[row] {
	t.Helper()
	opts = append([]Option[row]{WithRowKey(table.FieldRowKey[row]("id"))}, opts...)
	tbl, err := New(context.Background(), store, "users", testColumns(), testRows(), opts...)
	require.NoError(t, err)
	t.Cleanup(tbl.Close)
	return tbl
}

func newStore(t *testing.T) *tablestate.Store {
	t.Helper()
	s := tablestate.NewStore(kvstore.NewMemoryKVStore())
	t.Cleanup(func() {
		s.Close(context.Background())
	})
	return s
}

func rowIDs(v View[row]) []int {
	out := make([]int, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Row["id"].(int)
	}
	return out
}

func TestNewValidatesColumns(t *testing.T) {
	cols := testColumns()
	cols = append(cols, cols[1])
	_, err := New(context.Background(), newStore(t), "users", cols, testRows())
	assert.True(t, errors.Is(err, table.ErrDuplicateColumn))
}

func TestDefaultView(t *testing.T) {
	tbl := newTable(t, newStore(t))
	v := tbl.View(context.Background())

	assert.Equal(t, []string{"select", "name", "role"}, v.Columns.IDs())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, rowIDs(v))
	assert.Equal(t, pagination.PageWindow{
		PageIndex: 0, PageSize: 10, TotalRows: 25, TotalPages: 3,
		FirstRow: 1, LastRow: 10, CanPrevious: false, CanNext: true,
	}, v.Window)
	assert.Equal(t, []pagination.PageItem{{Page: 1}, {Page: 2}, {Page: 3}}, v.Pages)
	assert.Equal(t, filtersort.PageSelectionNone, v.PageSelection)
	assert.Equal(t, "3", v.Rows[3].Key)
}

func TestEmptyDataset(t *testing.T) {
	tbl, err := New(context.Background(), newStore(t), "empty", testColumns(), []row{})
	require.NoError(t, err)
	defer tbl.Close()

	v := tbl.View(context.Background())
	assert.Empty(t, v.Rows)
	assert.Equal(t, 1, v.Window.TotalPages)
	assert.Equal(t, 0, v.Window.FirstRow)
	assert.Equal(t, 0, v.Window.LastRow)
	assert.Equal(t, filtersort.PageSelectionNone, tbl.ToggleAllPageRowsSelected(context.Background()))
}

func TestPaging(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	assert.Equal(t, 1, tbl.NextPage(ctx))
	assert.Equal(t, 2, tbl.NextPage(ctx))
	assert.Equal(t, 2, tbl.NextPage(ctx), "last page is sticky")
	assert.Equal(t, 0, tbl.SetPageIndex(ctx, -4))
	assert.Equal(t, 0, tbl.PreviousPage(ctx))
	assert.Equal(t, 2, tbl.SetPageIndex(ctx, 99))

	v := tbl.View(ctx)
	assert.Equal(t, []int{20, 21, 22, 23, 24}, rowIDs(v))
	assert.Equal(t, 21, v.Window.FirstRow)
	assert.Equal(t, 25, v.Window.LastRow)
	assert.False(t, v.Window.CanNext)
}

func TestFilterAndSortResetPageIndex(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	tbl.SetPageIndex(ctx, 2)
	require.NoError(t, tbl.SetFilter(ctx, "role", "USER"))
	assert.Equal(t, 0, tbl.PageIndex())

	v := tbl.View(ctx)
	assert.Equal(t, 20, v.Window.TotalRows)
	assert.Equal(t, []int{1, 2, 3, 4, 6, 7, 8, 9, 11, 12}, rowIDs(v))

	tbl.SetPageIndex(ctx, 1)
	require.NoError(t, tbl.ToggleSort(ctx, "name"))
	assert.Equal(t, 0, tbl.PageIndex())
	require.NoError(t, tbl.ToggleSort(ctx, "name"))

	v = tbl.View(ctx)
	assert.Equal(t, table.Sorting{{ColumnID: "name", Direction: table.SortDescending}}, v.State.Sorting)
	assert.Equal(t, 24, rowIDs(v)[0])

	require.NoError(t, tbl.ClearFilter(ctx, "role"))
	assert.Equal(t, 25, tbl.View(ctx).Window.TotalRows)
}

func TestPageSizeChangeKeepsTopRow(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	tbl.SetPageIndex(ctx, 2)
	tbl.SetPageSize(ctx, 20)
	assert.Equal(t, 1, tbl.PageIndex())
	v := tbl.View(ctx)
	assert.Equal(t, 21, v.Window.FirstRow)
	assert.Equal(t, 2, v.Window.TotalPages)

	tbl.SetPageSize(ctx, 5)
	assert.Equal(t, 4, tbl.PageIndex())
	assert.Equal(t, 21, tbl.View(ctx).Window.FirstRow)

	tbl.SetPageSize(ctx, 100)
	assert.Equal(t, 0, tbl.PageIndex(), "page index is clamped to the single page")
}

func TestSortAndFilterErrors(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	assert.True(t, errors.Is(tbl.ToggleSort(ctx, "nope"), table.ErrColumnNotFound))
	assert.True(t, errors.Is(tbl.ToggleSort(ctx, "select"), ErrColumnNotSortable))
	assert.True(t, errors.Is(tbl.SetSort(ctx, "select", table.SortAscending), ErrColumnNotSortable))
	assert.True(t, errors.Is(tbl.SetFilter(ctx, "select", "x"), ErrColumnNotFilterable))
	assert.True(t, errors.Is(tbl.SetFilter(ctx, "nope", "x"), table.ErrColumnNotFound))
	assert.True(t, errors.Is(tbl.SetColumnVisible(ctx, "select", false), ErrColumnNotHidable))

	require.NoError(t, tbl.SetSort(ctx, "role", table.SortDescending))
	tbl.ClearSorting(ctx)
	assert.Empty(t, tbl.State(ctx).Sorting)
}

func TestSelection(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	assert.True(t, tbl.ToggleRowSelected(ctx, "3"))
	v := tbl.View(ctx)
	assert.True(t, v.Rows[3].Selected)
	assert.Equal(t, filtersort.PageSelectionSome, v.PageSelection)
	assert.Equal(t, 1, v.SelectedCount)
	assert.False(t, tbl.ToggleRowSelected(ctx, "3"))

	assert.Equal(t, filtersort.PageSelectionAll, tbl.ToggleAllPageRowsSelected(ctx))
	assert.Equal(t, 10, tbl.View(ctx).SelectedCount)
	assert.Equal(t, filtersort.PageSelectionNone, tbl.ToggleAllPageRowsSelected(ctx))
	assert.Equal(t, 0, tbl.View(ctx).SelectedCount)

	tbl.SetRowsSelected(ctx, true, "1", "24")
	assert.Equal(t, filtersort.PageSelectionAll, tbl.ToggleAllPageRowsSelected(ctx))
	selected := tbl.SelectedRows(ctx)
	require.Len(t, selected, 11)
	assert.Equal(t, "24", selected[10].Key)

	tbl.ClearSelection(ctx)
	assert.Empty(t, tbl.SelectedRows(ctx))
}

func TestSelectionPolicy(t *testing.T) {
	ctx := context.Background()

	keep := newTable(t, newStore(t))
	keep.SetRowsSelected(ctx, true, "0", "1")
	require.NoError(t, keep.SetFilter(ctx, "role", "ADMIN"))
	v := keep.View(ctx)
	assert.Equal(t, []string{"0", "1"}, v.State.RowSelection.Keys())
	assert.Equal(t, 2, v.SelectedCount)
	assert.True(t, v.Rows[0].Selected)

	prune := newTable(t, newStore(t), WithSelectionPolicy[row](filtersort.PruneHidden))
	prune.SetRowsSelected(ctx, true, "0", "1")
	require.NoError(t, prune.SetFilter(ctx, "role", "ADMIN"))
	assert.Equal(t, []string{"0"}, prune.State(ctx).RowSelection.Keys())

	prune.SetRowsSelected(ctx, true, "5")
	prune.SetRows(ctx, testRows()[:3])
	assert.Equal(t, []string{"0"}, prune.State(ctx).RowSelection.Keys())
}

func TestColumnVisibility(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	require.NoError(t, tbl.SetColumnVisible(ctx, "email", true))
	require.NoError(t, tbl.SetColumnVisible(ctx, "name", false))
	assert.Equal(t, []string{"select", "role", "email"}, tbl.View(ctx).Columns.IDs())

	tbl.ResetColumnVisibility(ctx)
	assert.Equal(t, []string{"select", "name", "role"}, tbl.View(ctx).Columns.IDs())
}

func TestFacets(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	roles, err := tbl.Facets("role")
	require.NoError(t, err)
	assert.Equal(t, []facet.Value{{Value: "ADMIN", Count: 5}, {Value: "USER", Count: 20}}, roles)

	// facets ignore filters
	require.NoError(t, tbl.SetFilter(ctx, "role", "ADMIN"))
	roles, err = tbl.Facets("role")
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	_, err = tbl.Facets("select")
	assert.True(t, errors.Is(err, ErrColumnNotFilterable))
	_, err = tbl.Facets("nope")
	assert.True(t, errors.Is(err, table.ErrColumnNotFound))

	all := tbl.AllFacets()
	assert.Len(t, all, 3)
	assert.Len(t, all["name"], 25)

	tbl.SetRows(ctx, testRows()[:6])
	roles, err = tbl.Facets("role")
	require.NoError(t, err)
	assert.Equal(t, []facet.Value{{Value: "ADMIN", Count: 2}, {Value: "USER", Count: 4}}, roles)
}

func TestDurableStateSurvivesSession(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKVStore()

	first := tablestate.NewStore(kv)
	tbl, err := New(ctx, first, "users", testColumns(), testRows())
	require.NoError(t, err)
	tbl.SetPageSize(ctx, 20)
	require.NoError(t, tbl.SetColumnVisible(ctx, "email", true))
	require.NoError(t, tbl.ToggleSort(ctx, "name"))
	tbl.Close()
	require.NoError(t, first.Close(ctx))

	second := tablestate.NewStore(kv)
	defer second.Close(ctx)
	tbl, err = New(ctx, second, "users", testColumns(), testRows())
	require.NoError(t, err)
	defer tbl.Close()

	v := tbl.View(ctx)
	assert.Equal(t, 20, v.Window.PageSize)
	assert.Contains(t, v.Columns.IDs(), "email")
	assert.Empty(t, v.State.Sorting)
}

func TestCloseUnsubscribes(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	tbl := newTable(t, store)

	tbl.SetPageIndex(ctx, 2)
	tbl.Close()
	tbl.Close()

	store.Set(ctx, "users", tablestate.Partial{ColumnFilters: &table.ColumnFilters{"role": "USER"}})
	assert.Equal(t, 2, tbl.PageIndex())
}

func TestFilteredIsUnpaginated(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, newStore(t))

	require.NoError(t, tbl.SetFilter(ctx, "role", "ADMIN"))
	require.NoError(t, tbl.SetSort(ctx, "name", table.SortDescending))
	tbl.SetPageSize(ctx, 5)

	filtered := tbl.Filtered(ctx)
	require.Len(t, filtered, 5)
	assert.Equal(t, 20, filtered[0]["id"])
	assert.Equal(t, 0, filtered[4]["id"])
	assert.Equal(t, []string{"select", "name", "role"}, tbl.VisibleColumns(ctx).IDs())
}
