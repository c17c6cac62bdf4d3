package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/kvstore"
	"github.com/danthegoodman1/icetable/pagination"
	"github.com/danthegoodman1/icetable/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

var logger = gologger.NewLogger()

type HTTPServer struct {
	Echo     *echo.Echo
	Sessions *SessionRegistry
}

type CustomValidator struct {
	validator *validator.Validate
}

// NewHTTPServer builds the server and its routes without listening.
func NewHTTPServer(kv kvstore.KVStore, defaultPageSize int) *HTTPServer {
	s := &HTTPServer{
		Echo:     echo.New(),
		Sessions: NewSessionRegistry(kv, defaultPageSize),
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.JSONSerializer = &utils.NoEscapeJSONSerializer{}

	s.Echo.Use(CreateReqContext)
	s.Echo.Use(LoggerMiddleware)
	s.Echo.Use(middleware.CORS())
	s.Echo.Validator = NewCustomValidator()

	// technical - no auth
	s.Echo.GET("/hc", s.HealthCheck)

	s.Echo.POST("/sessions", ccHandler(s.CreateSession))
	sessions := s.Echo.Group("/sessions/:sessionID")
	sessions.DELETE("", ccHandler(s.DeleteSession))
	sessions.GET("/tables", s.withSession(s.ListTables))

	tables := sessions.Group("/tables/:tableID")
	tables.PUT("", s.withSession(s.PutDataset))
	tables.DELETE("", s.withSession(s.DeleteTable))
	tables.GET("", s.withTable(s.GetView))
	tables.GET("/columns", s.withTable(s.GetColumns))
	tables.GET("/facets", s.withTable(s.GetFacets))
	tables.POST("/sort", s.withTable(s.PostSort))
	tables.PUT("/filters/:columnID", s.withTable(s.PutFilter))
	tables.DELETE("/filters/:columnID", s.withTable(s.DeleteFilter))
	tables.DELETE("/filters", s.withTable(s.DeleteFilters))
	tables.POST("/selection", s.withTable(s.PostSelection))
	tables.POST("/selection/page", s.withTable(s.PostPageSelection))
	tables.DELETE("/selection", s.withTable(s.DeleteSelection))
	tables.PUT("/visibility/:columnID", s.withTable(s.PutVisibility))
	tables.DELETE("/visibility", s.withTable(s.DeleteVisibility))
	tables.PUT("/page_size", s.withTable(s.PutPageSize))
	tables.GET("/export.parquet", s.withTable(s.ExportParquet))

	return s
}

func StartHTTPServer(kv kvstore.KVStore) *HTTPServer {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", utils.HTTP_PORT))
	if err != nil {
		logger.Error().Err(err).Msg("error creating tcp listener, exiting")
		os.Exit(1)
	}
	s := NewHTTPServer(kv, int(utils.DEFAULT_PAGE_SIZE))

	s.Echo.Listener = listener
	go func() {
		logger.Info().Msg("starting h2c server on " + listener.Addr().String())
		err := s.Echo.StartH2CServer("", &http2.Server{})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("failed to start h2c server, exiting")
			os.Exit(1)
		}
	}()

	return s
}

// NewCustomValidator registers the table specific tags: page_size accepts one of
// pagination.PageSizeOptions.
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	if err := v.RegisterValidation("page_size", func(fl validator.FieldLevel) bool {
		return pagination.IsPageSizeOption(int(fl.Field().Int()))
	}); err != nil {
		panic(fmt.Sprintf("error registering page_size validation: %s", err))
	}
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func ValidateRequest(c echo.Context, s interface{}) error {
	if err := c.Bind(s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(s); err != nil {
		return err
	}
	return nil
}

func (*HTTPServer) HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Shutdown stops accepting requests, then closes every session so queued durable writes land.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if err := s.Echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error in Echo.Shutdown: %w", err)
	}
	if err := s.Sessions.CloseAll(ctx); err != nil {
		return fmt.Errorf("error in Sessions.CloseAll: %w", err)
	}
	return nil
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// default handler
			c.Error(err)
		}
		stop := time.Since(start)
		// Log otherwise
		logger := zerolog.Ctx(c.Request().Context())
		req := c.Request()
		res := c.Response()

		p := req.URL.Path
		if p == "" {
			p = "/"
		}

		cl := req.Header.Get(echo.HeaderContentLength)
		if cl == "" {
			cl = "0"
		}
		logger.Debug().Str("method", req.Method).Str("remote_ip", c.RealIP()).Str("req_uri", req.RequestURI).Str("handler_path", c.Path()).Str("path", p).Int("status", res.Status).Int64("latency_ns", int64(stop)).Str("protocol", req.Proto).Str("bytes_in", cl).Int64("bytes_out", res.Size).Msg("req recived")
		return nil
	}
}
