package tablestate

import (
	"fmt"

	"github.com/danthegoodman1/icetable/table"
)

// DefaultPageSize is used when no page size has been stored for a table.
const DefaultPageSize = 10

// Field names one independently settable part of a TableState.
type Field int

const (
	FieldColumnVisibility Field = iota
	FieldSorting
	FieldColumnFilters
	FieldRowSelection
	FieldPageSize
)

// AllFields lists every field, durable ones first.
var AllFields = []Field{FieldColumnVisibility, FieldPageSize, FieldSorting, FieldColumnFilters, FieldRowSelection}

func (f Field) String() string {
	switch f {
	case FieldColumnVisibility:
		return "visibility"
	case FieldSorting:
		return "sorting"
	case FieldColumnFilters:
		return "columnFilters"
	case FieldRowSelection:
		return "rowSelection"
	case FieldPageSize:
		return "pageSize"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// Durable reports whether the field survives a process restart.
func (f Field) Durable() bool {
	return f == FieldColumnVisibility || f == FieldPageSize
}

// StorageKey is the key a durable field of tableID is stored under, e.g. table_pageSize_users-table.
// Ephemeral fields have no key.
func StorageKey(tableID string, f Field) string {
	if !f.Durable() {
		return ""
	}
	return "table_" + f.String() + "_" + tableID
}

type (
	// Durable is the part of a table's state persisted in the kv store.
	Durable struct {
		ColumnVisibility table.ColumnVisibility `json:"columnVisibility"`
		PageSize         int                    `json:"pageSize"`
	}

	// Ephemeral is the part of a table's state that only lives as long as the Store.
	Ephemeral struct {
		Sorting       table.Sorting       `json:"sorting"`
		ColumnFilters table.ColumnFilters `json:"columnFilters"`
		RowSelection  table.RowSelection  `json:"rowSelection"`
	}

	TableState struct {
		Durable
		Ephemeral
	}

	// Partial carries the fields a Set call changes. Nil fields are left alone.
	Partial struct {
		ColumnVisibility *table.ColumnVisibility
		Sorting          *table.Sorting
		ColumnFilters    *table.ColumnFilters
		RowSelection     *table.RowSelection
		PageSize         *int
	}
)

func defaultDurable(pageSize int) Durable {
	return Durable{
		ColumnVisibility: table.ColumnVisibility{},
		PageSize:         pageSize,
	}
}

func defaultEphemeral() Ephemeral {
	return Ephemeral{
		Sorting:       table.Sorting{},
		ColumnFilters: table.ColumnFilters{},
		RowSelection:  table.RowSelection{},
	}
}

// DefaultState is the state of a table that has never been touched.
func DefaultState() TableState {
	return TableState{
		Durable:   defaultDurable(DefaultPageSize),
		Ephemeral: defaultEphemeral(),
	}
}

// Clone deep copies the state so callers can't mutate the store's copy.
func (s TableState) Clone() TableState {
	return TableState{
		Durable: Durable{
			ColumnVisibility: s.ColumnVisibility.Clone(),
			PageSize:         s.PageSize,
		},
		Ephemeral: Ephemeral{
			Sorting:       s.Sorting.Clone(),
			ColumnFilters: s.ColumnFilters.Clone(),
			RowSelection:  s.RowSelection.Clone(),
		},
	}
}

// Fields returns the fields p changes, in AllFields order.
func (p Partial) Fields() []Field {
	var fields []Field
	for _, f := range AllFields {
		if p.has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

func (p Partial) has(f Field) bool {
	switch f {
	case FieldColumnVisibility:
		return p.ColumnVisibility != nil
	case FieldSorting:
		return p.Sorting != nil
	case FieldColumnFilters:
		return p.ColumnFilters != nil
	case FieldRowSelection:
		return p.RowSelection != nil
	case FieldPageSize:
		return p.PageSize != nil
	}
	return false
}
