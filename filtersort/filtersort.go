// Package filtersort turns a dataset and a table state into the visible, ordered rows.
//
// Filter and sort entries naming a column that no longer exists (or that is not filterable or
// sortable) are ignored rather than reported.
package filtersort

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/danthegoodman1/icetable/facet"
	"github.com/danthegoodman1/icetable/table"
)

type activeFilter[R any] struct {
	col   table.Column[R]
	value any
}

type activeSort[R any] struct {
	col  table.Column[R]
	desc bool
}

// Apply filters rows by filters and orders them by sorting. With no filters and no sorting the
// rows come back in their original order.
func Apply[R any](rows []R, cols table.Columns[R], filters table.ColumnFilters, sorting table.Sorting) []R {
	return Rows(rows, ApplyIndexed(rows, cols, filters, sorting))
}

// ApplyIndexed is Apply returning dataset positions instead of rows, so callers can derive
// position based row keys.
func ApplyIndexed[R any](rows []R, cols table.Columns[R], filters table.ColumnFilters, sorting table.Sorting) []int {
	return ApplyFaceted(rows, cols, nil, filters, sorting)
}

// ApplyFaceted is ApplyIndexed answering exact filters from the postings of ix where it can.
// ix must have been built from rows; a nil or stale index falls back to scanning.
func ApplyFaceted[R any](rows []R, cols table.Columns[R], ix *facet.Index, filters table.ColumnFilters, sorting table.Sorting) []int {
	positions := FilterFaceted(rows, cols, ix, filters)
	SortIndexed(rows, cols, sorting, positions)
	return positions
}

// Filter keeps the rows matching every active filter, preserving their relative order.
func Filter[R any](rows []R, cols table.Columns[R], filters table.ColumnFilters) []R {
	return Rows(rows, FilterIndexed(rows, cols, filters))
}

// FilterIndexed returns the ascending positions of rows matching every active filter.
func FilterIndexed[R any](rows []R, cols table.Columns[R], filters table.ColumnFilters) []int {
	return FilterFaceted(rows, cols, nil, filters)
}

// FilterFaceted is FilterIndexed intersecting facet postings instead of scanning rows for the
// exact filters ix can answer.
func FilterFaceted[R any](rows []R, cols table.Columns[R], ix *facet.Index, filters table.ColumnFilters) []int {
	keep := roaring.New()
	keep.AddRange(0, uint64(len(rows)))

	for _, af := range resolveFilters(cols, filters) {
		if posting, ok := postingFor(ix, len(rows), af); ok {
			keep.And(posting)
			if keep.IsEmpty() {
				break
			}
			continue
		}
		matched := roaring.New()
		it := keep.Iterator()
		for it.HasNext() {
			i := it.Next()
			if af.col.Matches(rows[i], af.value) {
				matched.Add(i)
			}
		}
		keep = matched
		if keep.IsEmpty() {
			break
		}
	}

	positions := make([]int, 0, keep.GetCardinality())
	it := keep.Iterator()
	for it.HasNext() {
		positions = append(positions, int(it.Next()))
	}
	return positions
}

// Sort returns rows ordered by sorting. It is stable: rows tied on every key keep their order.
func Sort[R any](rows []R, cols table.Columns[R], sorting table.Sorting) []R {
	positions := make([]int, len(rows))
	for i := range positions {
		positions[i] = i
	}
	SortIndexed(rows, cols, sorting, positions)
	return Rows(rows, positions)
}

// SortIndexed stably orders positions (indexes into rows) by sorting. Null cells sort last in
// both directions.
func SortIndexed[R any](rows []R, cols table.Columns[R], sorting table.Sorting, positions []int) {
	keys := resolveSorting(cols, sorting)
	if len(keys) == 0 {
		return
	}

	sort.SliceStable(positions, func(a, b int) bool {
		ra, rb := rows[positions[a]], rows[positions[b]]
		for _, key := range keys {
			va, vb := key.col.Value(ra), key.col.Value(rb)
			nullA, nullB := table.IsNull(va), table.IsNull(vb)
			switch {
			case nullA && nullB:
				continue
			case nullA:
				return false
			case nullB:
				return true
			}

			c := table.Compare(va, vb)
			if key.desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// Rows maps dataset positions back to rows.
func Rows[R any](rows []R, positions []int) []R {
	out := make([]R, len(positions))
	for i, pos := range positions {
		out[i] = rows[pos]
	}
	return out
}

// postingFor returns the rows of ix matching af. Postings skip falsy cells and hold normalized
// values, so only exact filters with a non-falsy value on columns without a normalizer qualify.
func postingFor[R any](ix *facet.Index, n int, af activeFilter[R]) (*roaring.Bitmap, bool) {
	if ix == nil || ix.RowCount() != n || !ix.Has(af.col.ID) {
		return nil, false
	}
	if af.col.FilterFn != table.FilterExact || af.col.Normalize != nil || table.IsFalsy(af.value) {
		return nil, false
	}
	return ix.Rows(af.col.ID, af.value), true
}

// resolveFilters returns the filters that apply, in column declaration order.
func resolveFilters[R any](cols table.Columns[R], filters table.ColumnFilters) []activeFilter[R] {
	var active []activeFilter[R]
	for _, col := range cols {
		v, ok := filters[col.ID]
		if !ok || !col.Filterable || table.IsNull(v) {
			continue
		}
		active = append(active, activeFilter[R]{col: col, value: v})
	}
	return active
}

func resolveSorting[R any](cols table.Columns[R], sorting table.Sorting) []activeSort[R] {
	var keys []activeSort[R]
	seen := make(map[string]struct{}, len(sorting))
	for _, entry := range sorting {
		if entry.Direction == table.SortNone {
			continue
		}
		if _, dup := seen[entry.ColumnID]; dup {
			continue
		}
		col, ok := cols.Find(entry.ColumnID)
		if !ok || !col.Sortable {
			continue
		}
		seen[entry.ColumnID] = struct{}{}
		keys = append(keys, activeSort[R]{col: col, desc: entry.Direction == table.SortDescending})
	}
	return keys
}
