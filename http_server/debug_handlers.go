package http_server

import (
	"net/http"
)

type (
	tableSummary struct {
		TableID    string
		NumRows    int
		NumColumns int
	}
)

func (s *HTTPServer) ListTables(c *CustomContext, sess *Session) error {
	var tables []tableSummary
	for _, id := range sess.TableIDs() {
		tbl, ok := sess.Table(id)
		if !ok {
			// deleted since listing
			continue
		}
		tables = append(tables, tableSummary{
			TableID:    id,
			NumRows:    len(tbl.Rows()),
			NumColumns: len(tbl.Columns()),
		})
	}
	return c.JSON(http.StatusOK, tables)
}

// GetColumns lists every column of the table, hidden ones included.
func (s *HTTPServer) GetColumns(c *CustomContext, tbl *sessionTable) error {
	visibility := tbl.State(c.Request().Context()).ColumnVisibility
	return c.JSON(http.StatusOK, columnResps(tbl, tbl.Columns(), visibility))
}
