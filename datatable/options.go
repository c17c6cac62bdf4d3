package datatable

import (
	"github.com/danthegoodman1/icetable/filtersort"
	"github.com/danthegoodman1/icetable/table"
	"github.com/rs/zerolog"
)

type options[R any] struct {
	rowKey table.RowKeyFunc[R]
	policy filtersort.SelectionPolicy
	logger *zerolog.Logger
}

// Option configures a Table.
type Option[R any] func(*options[R])

// WithRowKey sets how rows are identified for selection. Defaults to the row position.
func WithRowKey[R any](fn table.RowKeyFunc[R]) Option[R] {
	return func(o *options[R]) {
		if fn != nil {
			o.rowKey = fn
		}
	}
}

// WithSelectionPolicy decides whether a filter change deselects rows it hides. Defaults to
// filtersort.KeepStale.
func WithSelectionPolicy[R any](p filtersort.SelectionPolicy) Option[R] {
	return func(o *options[R]) {
		o.policy = p
	}
}

func WithLogger[R any](l zerolog.Logger) Option[R] {
	return func(o *options[R]) {
		o.logger = &l
	}
}
