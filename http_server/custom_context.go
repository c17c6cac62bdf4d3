package http_server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danthegoodman1/icetable/datatable"
	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/normalizer"
	"github.com/danthegoodman1/icetable/table"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CustomContext struct {
	echo.Context
	RequestID string
	SessionID string
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		logger := zerolog.Ctx(ctx)
		logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("reqID", reqID)
		})
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

func (c *CustomContext) InternalError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(1).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(1).Err(err).Msg(msg)
	}
	return c.String(http.StatusInternalServerError, c.internalErrorMessage())
}

// TableError maps table errors to client errors, anything else is internal.
func (c *CustomContext) TableError(err error, msg string) error {
	switch {
	case errors.Is(err, table.ErrColumnNotFound):
		return c.String(http.StatusNotFound, err.Error())
	case errors.Is(err, table.ErrDuplicateColumn),
		errors.Is(err, table.ErrEmptyColumnID),
		errors.Is(err, table.ErrNilAccessor),
		errors.Is(err, table.ErrInvalidSortDirection),
		errors.Is(err, datatable.ErrColumnNotSortable),
		errors.Is(err, datatable.ErrColumnNotFilterable),
		errors.Is(err, datatable.ErrColumnNotHidable),
		errors.Is(err, normalizer.ErrFuncNotFound),
		errors.Is(err, normalizer.ErrUnknownLocation):
		return c.String(http.StatusBadRequest, err.Error())
	}
	return c.InternalError(err, msg)
}

// withSession resolves :sessionID and tags the request logger with it.
func (s *HTTPServer) withSession(h func(*CustomContext, *Session) error) echo.HandlerFunc {
	return ccHandler(func(c *CustomContext) error {
		sess, ok := s.Sessions.Get(c.Param("sessionID"))
		if !ok {
			return c.String(http.StatusNotFound, ErrSessionNotFound.Error())
		}
		c.SessionID = sess.ID
		ctx := context.WithValue(c.Request().Context(), gologger.SessionIDKey, sess.ID)
		c.SetRequest(c.Request().WithContext(ctx))
		zerolog.Ctx(ctx).UpdateContext(func(zc zerolog.Context) zerolog.Context {
			return zc.Str("sessionID", sess.ID)
		})
		return h(c, sess)
	})
}

// withTable resolves :sessionID and :tableID.
func (s *HTTPServer) withTable(h func(*CustomContext, *sessionTable) error) echo.HandlerFunc {
	return s.withSession(func(c *CustomContext, sess *Session) error {
		tbl, ok := sess.Table(c.Param("tableID"))
		if !ok {
			return c.String(http.StatusNotFound, "table not found")
		}
		zerolog.Ctx(c.Request().Context()).UpdateContext(func(zc zerolog.Context) zerolog.Context {
			return zc.Str("tableID", tbl.ID())
		})
		return h(c, tbl)
	})
}
