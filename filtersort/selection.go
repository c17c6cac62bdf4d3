package filtersort

import (
	"fmt"

	"github.com/danthegoodman1/icetable/table"
)

// Annotated is an output row carrying its dataset position, key and selection flag.
type Annotated[R any] struct {
	Row      R
	Index    int
	Key      string
	Selected bool
}

// SelectionPolicy decides what happens to selected rows a filter change hides.
type SelectionPolicy int

const (
	// KeepStale leaves hidden rows selected until the selection is cleared.
	KeepStale SelectionPolicy = iota
	// PruneHidden deselects rows that are no longer in the filtered output.
	PruneHidden
)

func (p SelectionPolicy) String() string {
	if p == PruneHidden {
		return "prune_hidden"
	}
	return "keep_stale"
}

// Annotate marks each output position with its key and whether it is selected. Selection never
// changes which rows are returned or their order.
func Annotate[R any](rows []R, positions []int, rowKey table.RowKeyFunc[R], selection table.RowSelection) []Annotated[R] {
	out := make([]Annotated[R], len(positions))
	for i, pos := range positions {
		key := rowKey(pos, rows[pos])
		out[i] = Annotated[R]{
			Row:      rows[pos],
			Index:    pos,
			Key:      key,
			Selected: selection.IsSelected(key),
		}
	}
	return out
}

// PruneSelection drops selected keys that are not among visibleKeys.
func PruneSelection(selection table.RowSelection, visibleKeys []string) table.RowSelection {
	visible := make(map[string]struct{}, len(visibleKeys))
	for _, k := range visibleKeys {
		visible[k] = struct{}{}
	}
	out := make(table.RowSelection, len(selection))
	for k, selected := range selection {
		if _, ok := visible[k]; ok && selected {
			out[k] = true
		}
	}
	return out
}

// PageSelection is the state of the select-all checkbox for a set of rows.
type PageSelection int

const (
	PageSelectionNone PageSelection = iota
	PageSelectionSome
	PageSelectionAll
)

func (p PageSelection) String() string {
	switch p {
	case PageSelectionAll:
		return "all"
	case PageSelectionSome:
		return "some"
	default:
		return "none"
	}
}

func (p PageSelection) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PageSelection) UnmarshalText(b []byte) error {
	switch string(b) {
	case "all":
		*p = PageSelectionAll
	case "some":
		*p = PageSelectionSome
	case "none":
		*p = PageSelectionNone
	default:
		return fmt.Errorf("unknown page selection '%s'", string(b))
	}
	return nil
}

// SelectionOf reports whether all, some or none of rows are selected. An empty page is none.
func SelectionOf[R any](rows []Annotated[R]) PageSelection {
	selected := 0
	for _, r := range rows {
		if r.Selected {
			selected++
		}
	}
	switch {
	case selected == 0:
		return PageSelectionNone
	case selected == len(rows):
		return PageSelectionAll
	default:
		return PageSelectionSome
	}
}
