package http_server

import (
	"net/http"
	"strconv"

	"github.com/danthegoodman1/icetable/datatable"
	"github.com/danthegoodman1/icetable/facet"
	"github.com/danthegoodman1/icetable/filtersort"
	"github.com/danthegoodman1/icetable/pagination"
	"github.com/danthegoodman1/icetable/table"
)

type (
	ColumnResp struct {
		ID             string
		Header         string
		FilterCategory string
		// string, float or bool, inferred from the uploaded rows
		Type       string
		Sortable   bool
		Filterable bool
		Hidable    bool
		Visible    bool
		SortDir    table.SortDirection
		// Filter is the active filter value, omitted when the column is not filtered
		Filter any `json:",omitempty"`
	}

	RowResp struct {
		Key      string
		Index    int
		Selected bool
		// Cells holds the raw values of the visible columns
		Cells map[string]any
	}

	ViewResp struct {
		TableID         string
		Columns         []ColumnResp
		Rows            []RowResp
		Window          pagination.PageWindow
		Pages           []pagination.PageItem
		PageSizeOptions []int
		PageSelection   filtersort.PageSelection
		SelectedCount   int
		Sorting         table.Sorting
		Filters         table.ColumnFilters
	}

	SortReqBody struct {
		ColumnID string `validate:"required"`
		// asc, desc or none. Empty toggles the column.
		Direction string `validate:"omitempty,oneof=asc desc none"`
	}

	FilterReqBody struct {
		// Value is matched against the normalized cell, null clears the filter
		Value any
	}

	SelectionReqBody struct {
		Keys []string `validate:"required,min=1"`
		// Selected sets every key, nil toggles each key
		Selected *bool
	}

	VisibilityReqBody struct {
		Visible bool
	}

	PageSizeReqBody struct {
		PageSize int `validate:"required,page_size"`
	}
)

// GetView renders the current page. ?page= moves to a 1-based page first.
func (s *HTTPServer) GetView(c *CustomContext, tbl *sessionTable) error {
	ctx := c.Request().Context()
	if p := c.QueryParam("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			return c.String(http.StatusBadRequest, "page must be an integer")
		}
		tbl.SetPageIndex(ctx, page-1)
	}
	return s.respondView(c, tbl)
}

func (s *HTTPServer) respondView(c *CustomContext, tbl *sessionTable) error {
	return c.JSON(http.StatusOK, viewResp(tbl, tbl.View(c.Request().Context())))
}

func viewResp(tbl *sessionTable, v datatable.View[Row]) ViewResp {
	rows := make([]RowResp, len(v.Rows))
	for i, r := range v.Rows {
		cells := make(map[string]any, len(v.Columns))
		for _, col := range v.Columns {
			cells[col.ID] = col.Value(r.Row)
		}
		rows[i] = RowResp{Key: r.Key, Index: r.Index, Selected: r.Selected, Cells: cells}
	}

	var cols []ColumnResp
	for _, col := range columnResps(tbl, v.Columns, v.State.ColumnVisibility) {
		col.SortDir = v.State.Sorting.Direction(col.ID)
		col.Filter = v.State.ColumnFilters[col.ID]
		cols = append(cols, col)
	}

	return ViewResp{
		TableID:         v.TableID,
		Columns:         cols,
		Rows:            rows,
		Window:          v.Window,
		Pages:           v.Pages,
		PageSizeOptions: pagination.PageSizeOptions,
		PageSelection:   v.PageSelection,
		SelectedCount:   v.SelectedCount,
		Sorting:         v.State.Sorting,
		Filters:         v.State.ColumnFilters,
	}
}

func columnResps(tbl *sessionTable, cols table.Columns[Row], visibility table.ColumnVisibility) []ColumnResp {
	out := make([]ColumnResp, len(cols))
	for i, col := range cols {
		typ := tbl.Types[col.ID]
		if typ == "" {
			typ = "string"
		}
		out[i] = ColumnResp{
			ID:             col.ID,
			Header:         col.Header,
			FilterCategory: col.FilterCategory,
			Type:           typ,
			Sortable:       col.Sortable,
			Filterable:     col.Filterable,
			Hidable:        col.Hidable,
			Visible:        table.IsVisible(col, visibility),
		}
	}
	return out
}

// GetFacets returns the facets of every filterable column, or of ?column= alone.
func (s *HTTPServer) GetFacets(c *CustomContext, tbl *sessionTable) error {
	if columnID := c.QueryParam("column"); columnID != "" {
		values, err := tbl.Facets(columnID)
		if err != nil {
			return c.TableError(err, "error getting facets")
		}
		return c.JSON(http.StatusOK, map[string][]facet.Value{columnID: values})
	}
	return c.JSON(http.StatusOK, tbl.AllFacets())
}

func (s *HTTPServer) PostSort(c *CustomContext, tbl *sessionTable) error {
	var reqBody SortReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	var err error
	if reqBody.Direction == "" {
		err = tbl.ToggleSort(ctx, reqBody.ColumnID)
	} else {
		var dir table.SortDirection
		dir, err = table.ParseSortDirection(reqBody.Direction)
		if err == nil {
			err = tbl.SetSort(ctx, reqBody.ColumnID, dir)
		}
	}
	if err != nil {
		return c.TableError(err, "error sorting")
	}
	return s.respondView(c, tbl)
}

func (s *HTTPServer) PutFilter(c *CustomContext, tbl *sessionTable) error {
	var reqBody FilterReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err := tbl.SetFilter(c.Request().Context(), c.Param("columnID"), reqBody.Value); err != nil {
		return c.TableError(err, "error setting filter")
	}
	return s.respondView(c, tbl)
}

func (s *HTTPServer) DeleteFilter(c *CustomContext, tbl *sessionTable) error {
	if err := tbl.ClearFilter(c.Request().Context(), c.Param("columnID")); err != nil {
		return c.TableError(err, "error clearing filter")
	}
	return s.respondView(c, tbl)
}

func (s *HTTPServer) DeleteFilters(c *CustomContext, tbl *sessionTable) error {
	tbl.ClearFilters(c.Request().Context())
	return s.respondView(c, tbl)
}

func (s *HTTPServer) PostSelection(c *CustomContext, tbl *sessionTable) error {
	var reqBody SelectionReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	if reqBody.Selected != nil {
		tbl.SetRowsSelected(ctx, *reqBody.Selected, reqBody.Keys...)
	} else {
		for _, key := range reqBody.Keys {
			tbl.ToggleRowSelected(ctx, key)
		}
	}
	return s.respondView(c, tbl)
}

// PostPageSelection is the header checkbox of the current page.
func (s *HTTPServer) PostPageSelection(c *CustomContext, tbl *sessionTable) error {
	tbl.ToggleAllPageRowsSelected(c.Request().Context())
	return s.respondView(c, tbl)
}

func (s *HTTPServer) DeleteSelection(c *CustomContext, tbl *sessionTable) error {
	tbl.ClearSelection(c.Request().Context())
	return s.respondView(c, tbl)
}

func (s *HTTPServer) PutVisibility(c *CustomContext, tbl *sessionTable) error {
	var reqBody VisibilityReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err := tbl.SetColumnVisible(c.Request().Context(), c.Param("columnID"), reqBody.Visible); err != nil {
		return c.TableError(err, "error setting column visibility")
	}
	return s.respondView(c, tbl)
}

func (s *HTTPServer) DeleteVisibility(c *CustomContext, tbl *sessionTable) error {
	tbl.ResetColumnVisibility(c.Request().Context())
	return s.respondView(c, tbl)
}

func (s *HTTPServer) PutPageSize(c *CustomContext, tbl *sessionTable) error {
	var reqBody PageSizeReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	tbl.SetPageSize(c.Request().Context(), reqBody.PageSize)
	return s.respondView(c, tbl)
}
