package facet

import (
	"strings"
	"testing"

	"github.com/danthegoodman1/icetable/table"
	"github.com/stretchr/testify/assert"
)

type row = map[string]any

func roleColumn() table.Column[row] {
	return table.FilterableColumn(table.FilterableColumnConfig[row]{Key: "role", TranslateKey: "com_ui_role"})
}

func TestComputeFacetsDedupesAndSorts(t *testing.T) {
	rows := []row{
		{"role": "USER"},
		{"role": "ADMIN"},
		{"role": "USER"},
		{"role": ""},
		{"role": nil},
		{},
	}
	assert.Equal(t, []any{"ADMIN", "USER"}, ComputeFacets(rows, roleColumn()))
}

func TestComputeFacetsNormalizes(t *testing.T) {
	col := table.FilterableColumn(table.FilterableColumnConfig[row]{
		Key:            "provider",
		NormalizeValue: strings.ToLower,
	})
	rows := []row{{"provider": "Google"}, {"provider": "google"}, {"provider": "GITHUB"}, {"provider": "Local"}}
	assert.Equal(t, []any{"github", "google", "local"}, ComputeFacets(rows, col))
}

func TestComputeFacetsNumeric(t *testing.T) {
	col := table.FilterableColumn(table.FilterableColumnConfig[row]{Key: "n"})
	rows := []row{{"n": 10}, {"n": 2.0}, {"n": 2}, {"n": 0}, {"n": 33}}
	assert.Equal(t, []any{2.0, 10, 33}, ComputeFacets(rows, col))
}

func TestComputeFacetsEmpty(t *testing.T) {
	assert.Empty(t, ComputeFacets(nil, roleColumn()))
}

func TestIndex(t *testing.T) {
	cols := table.Columns[row]{
		roleColumn(),
		table.FilterableColumn(table.FilterableColumnConfig[row]{Key: "email", Filterable: new(bool)}),
	}
	rows := []row{
		{"role": "ADMIN", "email": "a@x"},
		{"role": "USER", "email": "b@x"},
		{"role": "USER", "email": "c@x"},
	}
	ix := BuildIndex(rows, cols)

	assert.Equal(t, 3, ix.RowCount())
	assert.True(t, ix.Has("role"))
	assert.False(t, ix.Has("email"), "non-filterable columns get no facets")
	assert.Nil(t, ix.Values("missing"))
	assert.Equal(t, []any{"ADMIN", "USER"}, ix.Values("role"))
	assert.Equal(t, []Value{{Value: "ADMIN", Count: 1}, {Value: "USER", Count: 2}}, ix.Facets("role"))
	assert.Equal(t, []uint32{1, 2}, ix.Rows("role", "USER").ToArray())
	assert.True(t, ix.Rows("role", "GUEST").IsEmpty())
}

func TestComputeFacetsKeepsLargeIntegersApart(t *testing.T) {
	col := table.FilterableColumn(table.FilterableColumnConfig[row]{Key: "id"})
	const big = int64(1) << 53
	rows := []row{{"id": big + 1}, {"id": big}, {"id": big + 1}}
	assert.Equal(t, []any{big, big + 1}, ComputeFacets(rows, col))
}
