package http_server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danthegoodman1/gojsonutils"
	"github.com/danthegoodman1/icetable/datatable"
	"github.com/danthegoodman1/icetable/filtersort"
	"github.com/danthegoodman1/icetable/normalizer"
	"github.com/danthegoodman1/icetable/parquet_accumulator"
	"github.com/danthegoodman1/icetable/table"
	"github.com/rs/zerolog"
)

type (
	DatasetReqBody struct {
		// Line-delimited JSON (NDJSON)
		RowsString *string
		// Array of JSON
		Rows []map[string]any
		// Columns in display order. When empty, one column per row key is inferred.
		Columns []ColumnReqBody `validate:"dive"`
		// RowKey names the row field that identifies rows for selection, the row position when empty
		RowKey          string
		SelectionPolicy string `validate:"omitempty,oneof=keep_stale prune_hidden"`
	}

	ColumnReqBody struct {
		Key            string `validate:"required"`
		TranslateKey   string
		FilterCategory string
		Normalize      *normalizer.Plan
		FilterFn       string `validate:"omitempty,oneof=exact contains"`
		Sortable       *bool
		Filterable     *bool
		Visible        *bool
		Hidable        *bool
	}

	DatasetStats struct {
		NumRows    int
		NumColumns int
		Columns    []ColumnResp
		TimeMS     int64
	}
)

var (
	ErrNotFlatMap = errors.New("not a flat map")
	ErrNotObject  = errors.New("line was not a JSON object")
)

// PutDataset creates or replaces a table of the session from uploaded rows.
func (s *HTTPServer) PutDataset(c *CustomContext, sess *Session) error {
	ctx := c.Request().Context()
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	var reqBody DatasetReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	defer c.Request().Body.Close()

	rows, err := flattenRows(reqBody)
	if errors.Is(err, ErrNotObject) {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error flattening rows")
	}

	inferred := parquet_accumulator.InferColumns(rows)
	types := make(map[string]string, len(inferred))
	for _, col := range inferred {
		types[col.Key] = col.Type
	}

	reqCols := reqBody.Columns
	if len(reqCols) == 0 {
		for _, col := range inferred {
			reqCols = append(reqCols, ColumnReqBody{Key: col.Key})
		}
	}
	cols, err := buildColumns(reqCols)
	if err != nil {
		return c.TableError(err, "error building columns")
	}

	opts := []datatable.Option[Row]{
		datatable.WithLogger[Row](*logger),
	}
	if reqBody.RowKey != "" {
		opts = append(opts, datatable.WithRowKey(table.FieldRowKey[Row](reqBody.RowKey)))
	}
	if reqBody.SelectionPolicy == filtersort.PruneHidden.String() {
		opts = append(opts, datatable.WithSelectionPolicy[Row](filtersort.PruneHidden))
	}

	tableID := c.Param("tableID")
	tbl, err := datatable.New(ctx, sess.Store, tableID, cols, rows, opts...)
	if err != nil {
		return c.TableError(err, "error in datatable.New")
	}
	st := &sessionTable{Table: tbl, Types: types}
	sess.PutTable(st)

	logger.Debug().Str("tableID", tableID).Int("rows", len(rows)).Int("columns", len(cols)).Msg("put dataset")
	return c.JSON(http.StatusCreated, DatasetStats{
		NumRows:    len(rows),
		NumColumns: len(cols),
		Columns:    columnResps(st, cols, tbl.State(ctx).ColumnVisibility),
		TimeMS:     time.Since(start).Milliseconds(),
	})
}

func (s *HTTPServer) DeleteTable(c *CustomContext, sess *Session) error {
	if !sess.DeleteTable(c.Param("tableID")) {
		return c.String(http.StatusNotFound, "table not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func flattenRows(reqBody DatasetReqBody) ([]Row, error) {
	rows := make([]Row, 0, len(reqBody.Rows))

	if reqBody.RowsString != nil {
		ndJSONScanner := bufio.NewScanner(strings.NewReader(*reqBody.RowsString))
		ndJSONScanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for ndJSONScanner.Scan() {
			line := strings.TrimSpace(ndJSONScanner.Text())
			if line == "" {
				continue
			}
			var raw any
			if err := json.Unmarshal([]byte(line), &raw); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrNotObject, err.Error())
			}
			jsonMap, ok := raw.(map[string]any)
			if !ok {
				return nil, ErrNotObject
			}
			flat, err := flattenRow(jsonMap)
			if err != nil {
				return nil, err
			}
			rows = append(rows, flat)
		}
		if err := ndJSONScanner.Err(); err != nil {
			return nil, fmt.Errorf("error in ndJSONScanner.Scan: %w", err)
		}
	}

	for _, row := range reqBody.Rows {
		if row == nil {
			return nil, ErrNotObject
		}
		flat, err := flattenRow(row)
		if err != nil {
			return nil, err
		}
		rows = append(rows, flat)
	}
	return rows, nil
}

func flattenRow(row map[string]any) (Row, error) {
	flat, err := gojsonutils.Flatten(row, nil)
	if err != nil {
		return nil, fmt.Errorf("error in gojsonutils.Flatten: %w", err)
	}
	flatMap, ok := flat.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %+v", ErrNotFlatMap, flat)
	}
	return flatMap, nil
}

func buildColumns(reqCols []ColumnReqBody) (table.Columns[Row], error) {
	cols := make(table.Columns[Row], 0, len(reqCols))
	for _, rc := range reqCols {
		col := table.FilterableColumn(table.FilterableColumnConfig[Row]{
			Key:            rc.Key,
			TranslateKey:   rc.TranslateKey,
			FilterCategory: rc.FilterCategory,
			Sortable:       rc.Sortable,
			Filterable:     rc.Filterable,
			Visible:        rc.Visible,
		})
		if rc.Normalize != nil {
			nf, err := normalizer.Resolve(*rc.Normalize)
			if err != nil {
				return nil, fmt.Errorf("column '%s': %w", rc.Key, err)
			}
			col.Normalize = nf
		}
		if rc.FilterFn == table.FilterContains.String() {
			col.FilterFn = table.FilterContains
		}
		if rc.Hidable != nil {
			col.Hidable = *rc.Hidable
		}
		cols = append(cols, col)
	}
	if err := cols.Validate(); err != nil {
		return nil, fmt.Errorf("error in cols.Validate: %w", err)
	}
	return cols, nil
}
