package datatable

import "errors"

var (
	ErrColumnNotSortable   = errors.New("column is not sortable")
	ErrColumnNotFilterable = errors.New("column is not filterable")
	ErrColumnNotHidable    = errors.New("column cannot be hidden")
)
