package http_server

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type SessionResp struct {
	SessionID string
	Created   time.Time
}

func (s *HTTPServer) CreateSession(c *CustomContext) error {
	sess := s.Sessions.Create()
	zerolog.Ctx(c.Request().Context()).Debug().Str("sessionID", sess.ID).Msg("created session")
	return c.JSON(http.StatusCreated, SessionResp{SessionID: sess.ID, Created: sess.Created})
}

// DeleteSession drops the session and its ephemeral state once its durable writes are flushed.
func (s *HTTPServer) DeleteSession(c *CustomContext) error {
	err := s.Sessions.Delete(c.Request().Context(), c.Param("sessionID"))
	if errors.Is(err, ErrSessionNotFound) {
		return c.String(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error deleting session")
	}
	return c.NoContent(http.StatusNoContent)
}
