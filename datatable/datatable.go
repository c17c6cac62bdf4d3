// Package datatable is one table instance: a dataset, its columns and the session state store,
// composed into the view a user sees and the actions a user takes.
//
// The dataset and columns are owned by the table. Sorting, filters, selection, visibility and
// page size live in the tablestate.Store so other instances sharing the store see them; only the
// page index is local.
package datatable

import (
	"context"
	"fmt"
	"sync"

	"github.com/danthegoodman1/icetable/facet"
	"github.com/danthegoodman1/icetable/filtersort"
	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/pagination"
	"github.com/danthegoodman1/icetable/table"
	"github.com/danthegoodman1/icetable/tablestate"
	"github.com/rs/zerolog"
)

type (
	Table[R any] struct {
		id     string
		store  *tablestate.Store
		cols   table.Columns[R]
		rowKey table.RowKeyFunc[R]
		policy filtersort.SelectionPolicy
		logger zerolog.Logger

		// serializes read-modify-write of the stored state through this table
		stateMu sync.Mutex

		mu        sync.RWMutex
		rows      []R
		facets    *facet.Index
		pageIndex int
		pageSize  int
		closed    bool

		unsubscribe []func()
	}

	// View is the rendered state of a table: the visible columns and the annotated rows of the
	// current page, plus everything a pager and a header checkbox need.
	View[R any] struct {
		TableID       string
		Columns       table.Columns[R]
		Rows          []filtersort.Annotated[R]
		Window        pagination.PageWindow
		Pages         []pagination.PageItem
		PageSelection filtersort.PageSelection
		// SelectedCount counts every selected key, including rows the current filters hide
		SelectedCount int
		State         tablestate.TableState
	}
)

// New builds a table over rows. Columns are validated once here; every later action trusts them.
func New[R any](ctx context.Context, store *tablestate.Store, tableID string, cols table.Columns[R], rows []R, opts ...Option[R]) (*Table[R], error) {
	if err := cols.Validate(); err != nil {
		return nil, fmt.Errorf("error in cols.Validate: %w", err)
	}

	o := options[R]{
		rowKey: table.IndexRowKey[R],
		policy: filtersort.KeepStale,
	}
	for _, opt := range opts {
		opt(&o)
	}
	base := gologger.NewLogger()
	if o.logger != nil {
		base = *o.logger
	}

	t := &Table[R]{
		id:       tableID,
		store:    store,
		cols:     cols,
		rowKey:   o.rowKey,
		policy:   o.policy,
		logger:   gologger.TableLogger(base, tableID),
		rows:     rows,
		facets:   facet.BuildIndex(rows, cols),
		pageSize: store.Get(ctx, tableID).PageSize,
	}
	t.unsubscribe = []func(){
		store.Subscribe(tableID, tablestate.FieldColumnFilters, t.onFiltersChanged),
		store.Subscribe(tableID, tablestate.FieldSorting, t.onSortingChanged),
		store.Subscribe(tableID, tablestate.FieldPageSize, t.onPageSizeChanged),
	}

	t.logger.Debug().Int("rows", len(rows)).Int("columns", len(cols)).Msg("built table")
	return t, nil
}

func (t *Table[R]) ID() string {
	return t.id
}

// Columns returns every column, hidden ones included, in declaration order.
func (t *Table[R]) Columns() table.Columns[R] {
	return t.cols
}

func (t *Table[R]) State(ctx context.Context) tablestate.TableState {
	return t.store.Get(ctx, t.id)
}

// Rows returns the dataset in its original order.
func (t *Table[R]) Rows() []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

// SetRows replaces the dataset and rebuilds the facets. The page index is re-clamped against the
// new row count.
func (t *Table[R]) SetRows(ctx context.Context, rows []R) {
	ix := facet.BuildIndex(rows, t.cols)

	t.mu.Lock()
	t.rows = rows
	t.facets = ix
	t.mu.Unlock()

	t.logger.Debug().Int("rows", len(rows)).Msg("replaced dataset")
	t.clampPageIndex(ctx)
	if t.policy == filtersort.PruneHidden {
		t.pruneSelection(ctx)
	}
}

// Facets returns the facet values of a filterable column with their row counts.
func (t *Table[R]) Facets(columnID string) ([]facet.Value, error) {
	col, err := t.column(columnID)
	if err != nil {
		return nil, err
	}
	if !col.Filterable {
		return nil, fmt.Errorf("column '%s': %w", columnID, ErrColumnNotFilterable)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.facets.Facets(columnID), nil
}

// AllFacets returns the facets of every filterable column, keyed by column id.
func (t *Table[R]) AllFacets() map[string][]facet.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]facet.Value)
	for _, col := range t.cols {
		if col.Filterable {
			out[col.ID] = t.facets.Facets(col.ID)
		}
	}
	return out
}

// View filters, sorts and paginates the dataset under the current state.
func (t *Table[R]) View(ctx context.Context) View[R] {
	state := t.store.Get(ctx, t.id)

	t.mu.Lock()
	defer t.mu.Unlock()

	positions := filtersort.ApplyFaceted(t.rows, t.cols, t.facets, state.ColumnFilters, state.Sorting)
	page, window := pagination.Paginate(positions, t.pageIndex, state.PageSize)
	t.pageIndex = window.PageIndex
	rows := filtersort.Annotate(t.rows, page, t.rowKey, state.RowSelection)

	return View[R]{
		TableID:       t.id,
		Columns:       t.cols.Visible(state.ColumnVisibility),
		Rows:          rows,
		Window:        window,
		Pages:         pagination.PageNumbers(window.PageIndex+1, window.TotalPages),
		PageSelection: filtersort.SelectionOf(rows),
		SelectedCount: len(state.RowSelection.Keys()),
		State:         state,
	}
}

// Filtered returns every row passing the current filters in the current sort order, unpaginated.
func (t *Table[R]) Filtered(ctx context.Context) []R {
	state := t.store.Get(ctx, t.id)

	t.mu.RLock()
	defer t.mu.RUnlock()
	return filtersort.Rows(t.rows, filtersort.ApplyFaceted(t.rows, t.cols, t.facets, state.ColumnFilters, state.Sorting))
}

// VisibleColumns returns the columns shown under the current visibility state.
func (t *Table[R]) VisibleColumns(ctx context.Context) table.Columns[R] {
	return t.cols.Visible(t.store.Get(ctx, t.id).ColumnVisibility)
}

// SelectedRows returns every selected row of the dataset in dataset order, whether or not the
// current filters show it.
func (t *Table[R]) SelectedRows(ctx context.Context) []filtersort.Annotated[R] {
	selection := t.store.Get(ctx, t.id).RowSelection

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []filtersort.Annotated[R]
	for i, row := range t.rows {
		key := t.rowKey(i, row)
		if selection.IsSelected(key) {
			out = append(out, filtersort.Annotated[R]{Row: row, Index: i, Key: key, Selected: true})
		}
	}
	return out
}

func (t *Table[R]) PageIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pageIndex
}

// SetPageIndex moves to pageIndex, clamped into the valid range, and returns the index used.
func (t *Table[R]) SetPageIndex(ctx context.Context, pageIndex int) int {
	state := t.store.Get(ctx, t.id)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pageIndex = pagination.ClampPageIndex(pageIndex, t.filteredCount(state), state.PageSize)
	return t.pageIndex
}

func (t *Table[R]) NextPage(ctx context.Context) int {
	return t.SetPageIndex(ctx, t.PageIndex()+1)
}

func (t *Table[R]) PreviousPage(ctx context.Context) int {
	return t.SetPageIndex(ctx, t.PageIndex()-1)
}

// ToggleSort cycles columnID through ascending, descending and unsorted.
func (t *Table[R]) ToggleSort(ctx context.Context, columnID string) error {
	col, err := t.sortableColumn(columnID)
	if err != nil {
		return err
	}

	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	sorting := filtersort.ToggleSorting(t.store.Get(ctx, t.id).Sorting, col)
	t.store.Set(ctx, t.id, tablestate.Partial{Sorting: &sorting})
	return nil
}

// SetSort sorts by columnID alone in dir. table.SortNone removes the column from the sort.
func (t *Table[R]) SetSort(ctx context.Context, columnID string, dir table.SortDirection) error {
	col, err := t.sortableColumn(columnID)
	if err != nil {
		return err
	}

	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	sorting := filtersort.SetSorting(t.store.Get(ctx, t.id).Sorting, col, dir)
	t.store.Set(ctx, t.id, tablestate.Partial{Sorting: &sorting})
	return nil
}

func (t *Table[R]) ClearSorting(ctx context.Context) {
	t.store.Reset(ctx, t.id, tablestate.FieldSorting)
}

// SetFilter filters columnID on value. A nil value removes the filter.
func (t *Table[R]) SetFilter(ctx context.Context, columnID string, value any) error {
	col, err := t.column(columnID)
	if err != nil {
		return err
	}
	if !col.Filterable {
		return fmt.Errorf("column '%s': %w", columnID, ErrColumnNotFilterable)
	}

	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	filters := t.store.Get(ctx, t.id).ColumnFilters.With(columnID, value)
	t.store.Set(ctx, t.id, tablestate.Partial{ColumnFilters: &filters})
	return nil
}

func (t *Table[R]) ClearFilter(ctx context.Context, columnID string) error {
	return t.SetFilter(ctx, columnID, nil)
}

func (t *Table[R]) ClearFilters(ctx context.Context) {
	t.store.Reset(ctx, t.id, tablestate.FieldColumnFilters)
}

// ToggleRowSelected flips the selection of the row with key and returns its new state.
func (t *Table[R]) ToggleRowSelected(ctx context.Context, key string) bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	current := t.store.Get(ctx, t.id).RowSelection
	selected := !current.IsSelected(key)
	next := current.With(selected, key)
	t.store.Set(ctx, t.id, tablestate.Partial{RowSelection: &next})
	return selected
}

func (t *Table[R]) SetRowsSelected(ctx context.Context, selected bool, keys ...string) {
	if len(keys) == 0 {
		return
	}
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	next := t.store.Get(ctx, t.id).RowSelection.With(selected, keys...)
	t.store.Set(ctx, t.id, tablestate.Partial{RowSelection: &next})
}

// ToggleAllPageRowsSelected is the header checkbox: a fully selected page is deselected,
// otherwise every row of the page is selected. It returns the new page selection.
func (t *Table[R]) ToggleAllPageRowsSelected(ctx context.Context) filtersort.PageSelection {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	view := t.View(ctx)
	if len(view.Rows) == 0 {
		return filtersort.PageSelectionNone
	}
	keys := make([]string, len(view.Rows))
	for i, r := range view.Rows {
		keys[i] = r.Key
	}

	selected := view.PageSelection != filtersort.PageSelectionAll
	next := view.State.RowSelection.With(selected, keys...)
	t.store.Set(ctx, t.id, tablestate.Partial{RowSelection: &next})

	if selected {
		return filtersort.PageSelectionAll
	}
	return filtersort.PageSelectionNone
}

func (t *Table[R]) ClearSelection(ctx context.Context) {
	t.store.Reset(ctx, t.id, tablestate.FieldRowSelection)
}

// SetColumnVisible shows or hides columnID. The choice is durable.
func (t *Table[R]) SetColumnVisible(ctx context.Context, columnID string, visible bool) error {
	col, err := t.column(columnID)
	if err != nil {
		return err
	}
	if !col.Hidable {
		return fmt.Errorf("column '%s': %w", columnID, ErrColumnNotHidable)
	}

	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	vis := t.store.Get(ctx, t.id).ColumnVisibility.Clone()
	vis[columnID] = visible
	t.store.Set(ctx, t.id, tablestate.Partial{ColumnVisibility: &vis})
	return nil
}

// ResetColumnVisibility drops every visibility override so columns fall back to their defaults.
func (t *Table[R]) ResetColumnVisibility(ctx context.Context) {
	t.store.Reset(ctx, t.id, tablestate.FieldColumnVisibility)
}

// SetPageSize changes the durable page size. The page index follows so the first row of the
// current page stays in view.
func (t *Table[R]) SetPageSize(ctx context.Context, pageSize int) {
	t.store.Set(ctx, t.id, tablestate.Partial{PageSize: &pageSize})
}

// Close detaches the table from the store. The stored state is left in place.
func (t *Table[R]) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	for _, unsub := range t.unsubscribe {
		unsub()
	}
}

func (t *Table[R]) column(columnID string) (table.Column[R], error) {
	col, ok := t.cols.Find(columnID)
	if !ok {
		return col, fmt.Errorf("column '%s': %w", columnID, table.ErrColumnNotFound)
	}
	return col, nil
}

func (t *Table[R]) sortableColumn(columnID string) (table.Column[R], error) {
	col, err := t.column(columnID)
	if err != nil {
		return col, err
	}
	if !col.Sortable {
		return col, fmt.Errorf("column '%s': %w", columnID, ErrColumnNotSortable)
	}
	return col, nil
}

// filteredCount must be called with t.mu held.
func (t *Table[R]) filteredCount(state tablestate.TableState) int {
	return len(filtersort.FilterFaceted(t.rows, t.cols, t.facets, state.ColumnFilters))
}

func (t *Table[R]) clampPageIndex(ctx context.Context) {
	state := t.store.Get(ctx, t.id)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pageIndex = pagination.ClampPageIndex(t.pageIndex, t.filteredCount(state), state.PageSize)
}

// pruneSelection deselects rows the current filters hide.
func (t *Table[R]) pruneSelection(ctx context.Context) {
	state := t.store.Get(ctx, t.id)
	if len(state.RowSelection) == 0 {
		return
	}

	t.mu.RLock()
	positions := filtersort.FilterFaceted(t.rows, t.cols, t.facets, state.ColumnFilters)
	keys := make([]string, len(positions))
	for i, pos := range positions {
		keys[i] = t.rowKey(pos, t.rows[pos])
	}
	t.mu.RUnlock()

	pruned := filtersort.PruneSelection(state.RowSelection, keys)
	if len(pruned) == len(state.RowSelection) {
		return
	}
	t.logger.Debug().Int("before", len(state.RowSelection)).Int("after", len(pruned)).Msg("pruned hidden rows from selection")
	t.store.Set(ctx, t.id, tablestate.Partial{RowSelection: &pruned})
}

func (t *Table[R]) onFiltersChanged(string, tablestate.Field) {
	t.mu.Lock()
	t.pageIndex = 0
	t.mu.Unlock()

	if t.policy == filtersort.PruneHidden {
		t.pruneSelection(context.Background())
	}
}

func (t *Table[R]) onSortingChanged(string, tablestate.Field) {
	t.mu.Lock()
	t.pageIndex = 0
	t.mu.Unlock()
}

func (t *Table[R]) onPageSizeChanged(string, tablestate.Field) {
	ctx := context.Background()
	newSize := t.store.Get(ctx, t.id).PageSize

	t.mu.Lock()
	t.pageIndex = pagination.PageIndexForPageSize(t.pageIndex, t.pageSize, newSize)
	t.pageSize = newSize
	t.mu.Unlock()

	t.clampPageIndex(ctx)
}
