package filtersort

import "github.com/danthegoodman1/icetable/table"

// ToggleSorting is the header click: a column cycles ascending, descending, unsorted. Clicking a
// column that is not part of the sort replaces the whole sort with that column ascending.
// Non-sortable columns leave the sort untouched.
func ToggleSorting[R any](sorting table.Sorting, col table.Column[R]) table.Sorting {
	if !col.Sortable {
		return sorting.Clone()
	}

	switch sorting.Direction(col.ID) {
	case table.SortAscending:
		return replaceEntry(sorting, col.ID, table.SortDescending)
	case table.SortDescending:
		return replaceEntry(sorting, col.ID, table.SortNone)
	default:
		return table.Sorting{{ColumnID: col.ID, Direction: table.SortAscending}}
	}
}

// SetSorting sorts by col alone in direction dir. SortNone removes the column from the sort.
func SetSorting[R any](sorting table.Sorting, col table.Column[R], dir table.SortDirection) table.Sorting {
	if !col.Sortable {
		return sorting.Clone()
	}
	if dir == table.SortNone {
		return replaceEntry(sorting, col.ID, table.SortNone)
	}
	return table.Sorting{{ColumnID: col.ID, Direction: dir}}
}

// replaceEntry changes the direction of columnID in place, dropping it for SortNone.
func replaceEntry(sorting table.Sorting, columnID string, dir table.SortDirection) table.Sorting {
	out := make(table.Sorting, 0, len(sorting))
	for _, entry := range sorting {
		if entry.ColumnID != columnID {
			out = append(out, entry)
			continue
		}
		if dir != table.SortNone {
			out = append(out, table.SortEntry{ColumnID: columnID, Direction: dir})
		}
	}
	return out
}
