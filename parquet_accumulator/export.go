package parquet_accumulator

import (
	"errors"
	"fmt"
	"io"

	"github.com/danthegoodman1/icetable/table"
	"github.com/xitongsys/parquet-go/writer"
)

var ErrNoColumns = errors.New("no columns to export")

// WriteParquet writes rows as a Parquet file with one field per column, in column order. Cells
// are written raw, before normalizing or rendering.
func WriteParquet[R any](w io.Writer, cols table.Columns[R], rows []R) error {
	if len(cols) == 0 {
		return ErrNoColumns
	}

	pa := NewParquetAccumulator()
	pa.Declare(cols.IDs()...)
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(cols))
		for _, col := range cols {
			if v := col.Value(row); !table.IsNull(v) {
				rec[col.ID] = v
			}
		}
		pa.WriteRow(rec)
		records[i] = rec
	}

	schema, err := pa.GetSchemaString()
	if err != nil {
		return fmt.Errorf("error in GetSchemaString: %w", err)
	}

	pw, err := writer.NewJSONWriterFromWriter(schema, w, 4)
	if err != nil {
		return fmt.Errorf("error in writer.NewJSONWriterFromWriter: %w", err)
	}
	for _, rec := range records {
		encoded, err := pa.Encode(rec)
		if err != nil {
			return fmt.Errorf("error in Encode: %w", err)
		}
		if err := pw.Write(encoded); err != nil {
			return fmt.Errorf("error in pw.Write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	return nil
}
