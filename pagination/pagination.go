package pagination

import "fmt"

// PageSizeOptions are the page sizes a user can pick from.
var PageSizeOptions = []int{5, 10, 20, 30, 50, 100}

const DefaultPageSize = 10

type (
	// PageWindow describes the page being shown. It is derived on every call, never stored.
	PageWindow struct {
		PageIndex  int `json:"pageIndex"`
		PageSize   int `json:"pageSize"`
		TotalRows  int `json:"totalRows"`
		TotalPages int `json:"totalPages"`
		// FirstRow and LastRow are the 1-based positions of the rows on the page, both 0 when
		// there are no rows
		FirstRow    int  `json:"firstRow"`
		LastRow     int  `json:"lastRow"`
		CanPrevious bool `json:"canPrevious"`
		CanNext     bool `json:"canNext"`
	}

	// PageItem is one entry of the page-number bar: a page number or an ellipsis placeholder.
	PageItem struct {
		Page     int  `json:"page,omitempty"`
		Ellipsis bool `json:"ellipsis,omitempty"`
	}
)

func (p PageItem) String() string {
	if p.Ellipsis {
		return "…"
	}
	return fmt.Sprint(p.Page)
}

// TotalPages is ceil(totalRows/pageSize), never less than 1.
func TotalPages(totalRows, pageSize int) int {
	pageSize = sanitizePageSize(pageSize)
	pages := (totalRows + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPageIndex moves pageIndex into [0, totalPages-1].
func ClampPageIndex(pageIndex, totalRows, pageSize int) int {
	last := TotalPages(totalRows, pageSize) - 1
	switch {
	case pageIndex < 0:
		return 0
	case pageIndex > last:
		return last
	}
	return pageIndex
}

// PageIndexForPageSize keeps the first row of the current page in view when the page size
// changes. The result still needs clamping against the row count.
func PageIndexForPageSize(pageIndex, oldPageSize, newPageSize int) int {
	oldPageSize, newPageSize = sanitizePageSize(oldPageSize), sanitizePageSize(newPageSize)
	if pageIndex < 0 {
		return 0
	}
	return pageIndex * oldPageSize / newPageSize
}

// Paginate returns the rows of page pageIndex (clamped) and the window describing it.
// A non-positive pageSize means DefaultPageSize.
func Paginate[R any](rows []R, pageIndex, pageSize int) ([]R, PageWindow) {
	pageSize = sanitizePageSize(pageSize)
	total := len(rows)
	pageIndex = ClampPageIndex(pageIndex, total, pageSize)
	totalPages := TotalPages(total, pageSize)

	start := pageIndex * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	window := PageWindow{
		PageIndex:   pageIndex,
		PageSize:    pageSize,
		TotalRows:   total,
		TotalPages:  totalPages,
		CanPrevious: pageIndex > 0,
		CanNext:     pageIndex < totalPages-1,
	}
	if total > 0 {
		window.FirstRow = start + 1
		window.LastRow = end
	}

	return rows[start:end], window
}

// PageNumbers builds the compact page bar for a 1-based currentPage:
//
//	totalPages <= 3:              1..totalPages
//	currentPage <= 2:             1 2 3 … totalPages
//	currentPage >= totalPages-2:  1 … totalPages-3..totalPages
//	otherwise:                    1 … current-1 current current+1 … totalPages
//
// The ellipsis stands in for the pages between its neighbours; page 1 is never repeated when
// totalPages-3 is 1.
func PageNumbers(currentPage, totalPages int) []PageItem {
	if totalPages < 1 {
		totalPages = 1
	}
	if currentPage < 1 {
		currentPage = 1
	} else if currentPage > totalPages {
		currentPage = totalPages
	}

	ellipsis := PageItem{Ellipsis: true}
	var items []PageItem
	switch {
	case totalPages <= 3:
		items = pageItems(1, totalPages)
	case currentPage <= 2:
		items = append(pageItems(1, 3), ellipsis, PageItem{Page: totalPages})
	case currentPage >= totalPages-2:
		start := totalPages - 3
		if start < 2 {
			start = 2
		}
		items = append([]PageItem{{Page: 1}, ellipsis}, pageItems(start, totalPages)...)
	default:
		items = append([]PageItem{{Page: 1}, ellipsis}, pageItems(currentPage-1, currentPage+1)...)
		items = append(items, ellipsis, PageItem{Page: totalPages})
	}
	return items
}

func pageItems(from, to int) []PageItem {
	out := make([]PageItem, 0, to-from+1)
	for p := from; p <= to; p++ {
		out = append(out, PageItem{Page: p})
	}
	return out
}

// IsPageSizeOption reports whether n is one of PageSizeOptions.
func IsPageSizeOption(n int) bool {
	for _, o := range PageSizeOptions {
		if o == n {
			return true
		}
	}
	return false
}

func sanitizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}
	return pageSize
}
