package table

import (
	"fmt"
	"sort"
	"strings"
)

// SortDirection specifies the direction of sorting.
type SortDirection int

const (
	// SortNone indicates no sorting.
	SortNone SortDirection = iota
	// SortAscending indicates ascending sort order.
	SortAscending
	// SortDescending indicates descending sort order.
	SortDescending
)

func (sd SortDirection) String() string {
	switch sd {
	case SortNone:
		return "none"
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return fmt.Sprintf("unknown(%d)", sd)
	}
}

// ParseSortDirection accepts asc/ascending, desc/descending and none (or empty).
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	case "", "none":
		return SortNone, nil
	}
	return SortNone, fmt.Errorf("%w: '%s'", ErrInvalidSortDirection, s)
}

func (sd SortDirection) MarshalText() ([]byte, error) {
	return []byte(sd.String()), nil
}

func (sd *SortDirection) UnmarshalText(b []byte) error {
	parsed, err := ParseSortDirection(string(b))
	if err != nil {
		return err
	}
	*sd = parsed
	return nil
}

type (
	// SortEntry is one key of a multi-key sort.
	SortEntry struct {
		ColumnID  string        `json:"id"`
		Direction SortDirection `json:"direction"`
	}

	// Sorting is ordered: the first entry is the primary key, later entries break ties.
	Sorting []SortEntry

	// ColumnFilters holds at most one scalar filter value per column. A nil value means no constraint.
	ColumnFilters map[string]any

	// RowSelection is the set of selected row keys.
	RowSelection map[string]bool

	// ColumnVisibility holds explicit visibility overrides per column id.
	ColumnVisibility map[string]bool
)

// Direction returns the direction the column is sorted in, SortNone if it is not part of the sort.
func (s Sorting) Direction(columnID string) SortDirection {
	for _, entry := range s {
		if entry.ColumnID == columnID {
			return entry.Direction
		}
	}
	return SortNone
}

func (s Sorting) Clone() Sorting {
	if s == nil {
		return Sorting{}
	}
	out := make(Sorting, len(s))
	copy(out, s)
	return out
}

func (f ColumnFilters) Clone() ColumnFilters {
	out := make(ColumnFilters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Active returns the ids of columns carrying a non-null filter value, sorted.
func (f ColumnFilters) Active() []string {
	var ids []string
	for id, v := range f {
		if !IsNull(v) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// With returns a copy where columnID filters on value. A nil value removes the filter.
func (f ColumnFilters) With(columnID string, value any) ColumnFilters {
	out := f.Clone()
	if IsNull(value) {
		delete(out, columnID)
	} else {
		out[columnID] = value
	}
	return out
}

func (r RowSelection) Clone() RowSelection {
	out := make(RowSelection, len(r))
	for k, v := range r {
		if v {
			out[k] = true
		}
	}
	return out
}

func (r RowSelection) IsSelected(key string) bool {
	return r[key]
}

// Keys returns the selected row keys, sorted.
func (r RowSelection) Keys() []string {
	keys := make([]string, 0, len(r))
	for k, v := range r {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy where each of keys is selected or deselected.
func (r RowSelection) With(selected bool, keys ...string) RowSelection {
	out := r.Clone()
	for _, k := range keys {
		if selected {
			out[k] = true
		} else {
			delete(out, k)
		}
	}
	return out
}

func (v ColumnVisibility) Clone() ColumnVisibility {
	out := make(ColumnVisibility, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
