package pagination

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(items []PageItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ",")
}

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
	}{
		{1, 10, "1,2,3,…,10"},
		{2, 10, "1,2,3,…,10"},
		{5, 10, "1,…,4,5,6,…,10"},
		{9, 10, "1,…,7,8,9,10"},
		{8, 10, "1,…,7,8,9,10"},
		{10, 10, "1,…,7,8,9,10"},
		{3, 10, "1,…,2,3,4,…,10"},
		{4, 10, "1,…,3,4,5,…,10"},
		{1, 2, "1,2"},
		{2, 2, "1,2"},
		{1, 1, "1"},
		{1, 3, "1,2,3"},
		{3, 3, "1,2,3"},
		{1, 4, "1,2,3,…,4"},
		{2, 4, "1,2,3,…,4"},
		{3, 4, "1,…,2,3,4"},
		{4, 4, "1,…,2,3,4"},
		{3, 5, "1,…,2,3,4,5"},
		{1, 5, "1,2,3,…,5"},
		{5, 5, "1,…,2,3,4,5"},
		{50, 10, "1,…,7,8,9,10"},
		{0, 0, "1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bar(PageNumbers(tt.current, tt.total)), "current=%d total=%d", tt.current, tt.total)
	}
}

func TestPageNumbersEllipsisNeverClickable(t *testing.T) {
	for _, it := range PageNumbers(5, 10) {
		if it.Ellipsis {
			assert.Zero(t, it.Page)
		} else {
			assert.Positive(t, it.Page)
		}
	}
}

func TestTotalPagesLaw(t *testing.T) {
	for rows := 0; rows < 60; rows++ {
		for _, size := range PageSizeOptions {
			want := (rows + size - 1) / size
			if want < 1 {
				want = 1
			}
			assert.Equal(t, want, TotalPages(rows, size), "rows=%d size=%d", rows, size)
		}
	}
}

func TestPaginate(t *testing.T) {
	rows := make([]int, 23)
	for i := range rows {
		rows[i] = i
	}

	page, w := Paginate(rows, 0, 10)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, page)
	assert.Equal(t, PageWindow{PageIndex: 0, PageSize: 10, TotalRows: 23, TotalPages: 3, FirstRow: 1, LastRow: 10, CanNext: true}, w)

	page, w = Paginate(rows, 2, 10)
	assert.Equal(t, []int{20, 21, 22}, page)
	assert.Equal(t, 21, w.FirstRow)
	assert.Equal(t, 23, w.LastRow)
	assert.True(t, w.CanPrevious)
	assert.False(t, w.CanNext)
}

func TestPaginateClampsOutOfRange(t *testing.T) {
	rows := []string{"a", "b", "c"}

	page, w := Paginate(rows, 7, 2)
	assert.Equal(t, []string{"c"}, page)
	assert.Equal(t, 1, w.PageIndex)

	page, w = Paginate(rows, -4, 2)
	assert.Equal(t, []string{"a", "b"}, page)
	assert.Equal(t, 0, w.PageIndex)
}

func TestPaginateEmpty(t *testing.T) {
	page, w := Paginate([]string(nil), 3, 10)
	assert.Empty(t, page)
	assert.Equal(t, PageWindow{PageIndex: 0, PageSize: 10, TotalRows: 0, TotalPages: 1}, w)
}

func TestPaginateNonPositivePageSize(t *testing.T) {
	rows := make([]int, 15)
	page, w := Paginate(rows, 0, 0)
	require.Len(t, page, DefaultPageSize)
	assert.Equal(t, 2, w.TotalPages)
}

func TestPageIndexForPageSize(t *testing.T) {
	// page 5 of size 10 starts at row 50, which is on page 1 of size 50
	assert.Equal(t, 1, PageIndexForPageSize(5, 10, 50))
	assert.Equal(t, 10, PageIndexForPageSize(2, 50, 10))
	assert.Equal(t, 0, PageIndexForPageSize(-1, 10, 5))

	// shrinking the row count after growing the page size still needs a clamp
	idx := PageIndexForPageSize(9, 10, 5)
	assert.Equal(t, 18, idx)
	assert.Equal(t, 4, ClampPageIndex(idx, 25, 5))
}

func TestIsPageSizeOption(t *testing.T) {
	assert.True(t, IsPageSizeOption(10))
	assert.True(t, IsPageSizeOption(100))
	assert.False(t, IsPageSizeOption(7))
}
