package facet

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/danthegoodman1/icetable/table"
)

// Index holds the facets of every filterable column of one dataset. Build a new one whenever the
// dataset changes; filter, sort and selection changes never invalidate it.
type Index struct {
	rowCount int
	columns  map[string]columnFacets
}

// BuildIndex computes the facets of each filterable column of rows.
func BuildIndex[R any](rows []R, cols table.Columns[R]) *Index {
	ix := &Index{
		rowCount: len(rows),
		columns:  make(map[string]columnFacets, len(cols)),
	}
	for _, col := range cols {
		if !col.Filterable {
			continue
		}
		ix.columns[col.ID] = collect(rows, col)
	}
	return ix
}

// RowCount is the size of the dataset the index was built from.
func (ix *Index) RowCount() int {
	return ix.rowCount
}

// Has reports whether the index holds facets for columnID.
func (ix *Index) Has(columnID string) bool {
	_, ok := ix.columns[columnID]
	return ok
}

// Values returns the sorted facet values of columnID, nil for unknown or non-filterable columns.
func (ix *Index) Values(columnID string) []any {
	cf, ok := ix.columns[columnID]
	if !ok {
		return nil
	}
	out := make([]any, len(cf.values))
	copy(out, cf.values)
	return out
}

// Facets returns the facet values of columnID with their row counts.
func (ix *Index) Facets(columnID string) []Value {
	cf, ok := ix.columns[columnID]
	if !ok {
		return nil
	}
	out := make([]Value, len(cf.values))
	for i, v := range cf.values {
		out[i] = Value{Value: v, Count: int(cf.postings[i].GetCardinality())}
	}
	return out
}

// Rows returns the dataset positions whose normalized cell in columnID equals value.
func (ix *Index) Rows(columnID string, value any) *roaring.Bitmap {
	cf, ok := ix.columns[columnID]
	if !ok {
		return roaring.New()
	}
	for i, v := range cf.values {
		if table.Equal(v, value) {
			return cf.postings[i].Clone()
		}
	}
	return roaring.New()
}
