package table

import "errors"

// Errors returned when a column set is validated at table construction.
var (
	// ErrEmptyColumnID is returned when a column has no id.
	ErrEmptyColumnID = errors.New("column id is empty")

	// ErrDuplicateColumn is returned when two columns share an id.
	ErrDuplicateColumn = errors.New("duplicate column id")

	// ErrNilAccessor is returned when a column cannot extract a cell value.
	ErrNilAccessor = errors.New("column accessor is nil")

	// ErrColumnNotFound is returned by lookups that name an unknown column.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidSortDirection is returned when a direction string cannot be parsed.
	ErrInvalidSortDirection = errors.New("invalid sort direction")
)
