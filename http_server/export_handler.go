package http_server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danthegoodman1/icetable/parquet_accumulator"
	"github.com/danthegoodman1/icetable/utils"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ExportParquet writes the visible columns as a Parquet file. ?scope= picks the rows: all
// (filtered and sorted, unpaginated, the default), page (the current page) or selected (every
// selected row in dataset order).
func (s *HTTPServer) ExportParquet(c *CustomContext, tbl *sessionTable) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*60)
	defer cancel()
	logger := zerolog.Ctx(ctx)

	var rows []Row
	switch scope := c.QueryParam("scope"); scope {
	case "", "all":
		rows = tbl.Filtered(ctx)
	case "page":
		for _, r := range tbl.View(ctx).Rows {
			rows = append(rows, r.Row)
		}
	case "selected":
		for _, r := range tbl.SelectedRows(ctx) {
			rows = append(rows, r.Row)
		}
	default:
		return c.String(http.StatusBadRequest, fmt.Sprintf("unknown scope '%s'", scope))
	}

	cols := tbl.VisibleColumns(ctx)
	var b bytes.Buffer
	if err := parquet_accumulator.WriteParquet(&b, cols, rows); err != nil {
		if errors.Is(err, parquet_accumulator.ErrNoColumns) {
			return c.String(http.StatusBadRequest, err.Error())
		}
		return c.InternalError(err, "error in WriteParquet")
	}

	fileName := fmt.Sprintf("%s_%s.parquet", tbl.ID(), utils.GenRandomID(""))
	logger.Debug().Int("rows", len(rows)).Int("bytes", b.Len()).Str("fileName", fileName).Msg("exported parquet")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Blob(http.StatusOK, "application/vnd.apache.parquet", b.Bytes())
}
