package table

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// Accessor extracts one cell value from a row.
	Accessor[R any] func(row R) any

	// NormalizeFunc maps a raw cell value to the canonical key used by facets and filters.
	NormalizeFunc func(v any) any

	// RenderFunc formats a cell for display. Presentation only; the engine never calls it.
	RenderFunc[R any] func(value any, row R) string

	// RowKeyFunc derives the stable identity of a row for selection.
	RowKeyFunc[R any] func(index int, row R) string

	// FilterFn selects how a column's filter value is matched against its cells.
	FilterFn int

	// Column describes one column of a table instance. Columns are immutable once a table is built.
	Column[R any] struct {
		ID string
		// Header is the label (or translation key) shown for the column
		Header string
		// FilterCategory groups the facet values in a filter menu, defaults to the header
		FilterCategory string

		Accessor  Accessor[R]
		Normalize NormalizeFunc
		Render    RenderFunc[R]
		FilterFn  FilterFn

		Sortable   bool
		Filterable bool
		Hidable    bool
		// Hidden is the visibility used when the table state holds no entry for the column
		Hidden bool
	}

	Columns[R any] []Column[R]
)

const (
	// FilterExact keeps rows whose normalized cell equals the filter value.
	FilterExact FilterFn = iota
	// FilterContains keeps rows whose normalized cell contains the filter text, ignoring case.
	FilterContains
)

func (f FilterFn) String() string {
	switch f {
	case FilterExact:
		return "exact"
	case FilterContains:
		return "contains"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// Value returns the raw cell value of row, with pointers dereferenced.
func (c Column[R]) Value(row R) any {
	return Indirect(c.Accessor(row))
}

// NormalizedValue returns the cell value passed through the column's normalize function.
// Null cells are never normalized.
func (c Column[R]) NormalizedValue(row R) any {
	v := c.Value(row)
	if c.Normalize == nil || IsNull(v) {
		return v
	}
	return Indirect(c.Normalize(v))
}

// Matches reports whether the normalized cell of row satisfies the filter value.
// A null filter value places no constraint on the row.
func (c Column[R]) Matches(row R, filterValue any) bool {
	if IsNull(filterValue) {
		return true
	}
	cell := c.NormalizedValue(row)
	switch c.FilterFn {
	case FilterContains:
		if IsNull(cell) {
			return false
		}
		return strings.Contains(strings.ToLower(fmt.Sprint(cell)), strings.ToLower(fmt.Sprint(Indirect(filterValue))))
	default:
		return Equal(cell, filterValue)
	}
}

// Validate checks what a table relies on: every column has a unique, non-empty id and
// an accessor.
func (cols Columns[R]) Validate() error {
	seen := make(map[string]struct{}, len(cols))
	for i, col := range cols {
		if col.ID == "" {
			return fmt.Errorf("column %d: %w", i, ErrEmptyColumnID)
		}
		if _, exists := seen[col.ID]; exists {
			return fmt.Errorf("column '%s': %w", col.ID, ErrDuplicateColumn)
		}
		if col.Accessor == nil {
			return fmt.Errorf("column '%s': %w", col.ID, ErrNilAccessor)
		}
		seen[col.ID] = struct{}{}
	}
	return nil
}

// Find returns the column with the given id.
func (cols Columns[R]) Find(id string) (Column[R], bool) {
	for _, col := range cols {
		if col.ID == id {
			return col, true
		}
	}
	return Column[R]{}, false
}

// IDs returns the column ids in declaration order.
func (cols Columns[R]) IDs() []string {
	ids := make([]string, len(cols))
	for i, col := range cols {
		ids[i] = col.ID
	}
	return ids
}

// IsVisible resolves the visibility of col: non-hidable columns are always shown, an explicit
// state entry wins otherwise, and the column default applies when there is none.
func IsVisible[R any](col Column[R], visibility ColumnVisibility) bool {
	if !col.Hidable {
		return true
	}
	if v, ok := visibility[col.ID]; ok {
		return v
	}
	return !col.Hidden
}

// Visible returns the columns shown under the given visibility state, in declaration order.
func (cols Columns[R]) Visible(visibility ColumnVisibility) Columns[R] {
	out := make(Columns[R], 0, len(cols))
	for _, col := range cols {
		if IsVisible(col, visibility) {
			out = append(out, col)
		}
	}
	return out
}

// IndexRowKey identifies rows by their position in the dataset.
func IndexRowKey[R any](index int, _ R) string {
	return strconv.Itoa(index)
}

// FieldRowKey identifies rows by the value stored under key, falling back to the row position
// when the row has no such value.
func FieldRowKey[R any](key string) RowKeyFunc[R] {
	accessor := KeyAccessor[R](key)
	return func(index int, row R) string {
		v := Indirect(accessor(row))
		if v == nil {
			return strconv.Itoa(index)
		}
		return fmt.Sprint(v)
	}
}
