// Package facet discovers the distinct values of a column, the choices a filter menu offers.
//
// Facets are a property of the dataset: they are always computed over the full, unfiltered rows,
// so picking one filter value never hides the other choices.
package facet

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/danthegoodman1/icetable/table"
)

// Value is one facet choice and the number of rows holding it.
type Value struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

type columnFacets struct {
	values   []any
	postings []*roaring.Bitmap
}

// ComputeFacets returns the distinct normalized values of col across rows, sorted. Falsy cells
// (null, empty, false, zero) are dropped before normalizing.
func ComputeFacets[R any](rows []R, col table.Column[R]) []any {
	return collect(rows, col).values
}

func collect[R any](rows []R, col table.Column[R]) columnFacets {
	positions := make(map[any]int)
	var cf columnFacets

	for i, row := range rows {
		if table.IsFalsy(col.Value(row)) {
			continue
		}
		v := col.NormalizedValue(row)
		if table.IsNull(v) {
			continue
		}
		k := table.Key(v)
		pos, ok := positions[k]
		if !ok {
			pos = len(cf.values)
			positions[k] = pos
			cf.values = append(cf.values, v)
			cf.postings = append(cf.postings, roaring.New())
		}
		cf.postings[pos].Add(uint32(i))
	}

	order := make([]int, len(cf.values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return table.Compare(cf.values[order[a]], cf.values[order[b]]) < 0
	})

	sorted := columnFacets{
		values:   make([]any, len(order)),
		postings: make([]*roaring.Bitmap, len(order)),
	}
	for i, pos := range order {
		sorted.values[i] = cf.values[pos]
		sorted.postings[i] = cf.postings[pos]
	}
	return sorted
}
