package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/discourselab/cosmos/internal/cosmos"
	"github.com/discourselab/cosmos/session"
)

type handlers struct {
	pipeline   *cosmos.Pipeline
	sessions   session.Store
	sessionTTL time.Duration
}

type runRequest struct {
	Source string           `json:"source"`
	Topic  string           `json:"topic"`
	Posts  []cosmos.RawPost `json:"posts"`
}

func (h *handlers) runPipeline(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Source) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source is required")
	}
	if len(req.Posts) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "posts must not be empty")
	}

	layout, err := h.pipeline.Run(c.Request().Context(), req.Source, req.Topic, req.Posts)
	if err != nil {
		var ve *cosmos.ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, layout)
}

func (h *handlers) lookup(c echo.Context) error {
	source := c.Param("source")
	rec, ok := h.pipeline.Lookup(c.Request().Context(), source)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no cosmos for source")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *handlers) runStatus(c echo.Context) error {
	status, ok := h.pipeline.Status(c.Param("source"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no runs for source")
	}
	return c.JSON(http.StatusOK, status)
}

type classifyRequest struct {
	Text string `json:"text"`
}

func (h *handlers) classify(c echo.Context) error {
	var req classifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	source := c.Param("source")
	rec, ok := h.pipeline.Lookup(c.Request().Context(), source)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no cosmos for source")
	}

	post, err := h.pipeline.Classify(c.Request().Context(), req.Text, rec.Layout)
	if err != nil {
		var ve *cosmos.ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (h *handlers) createSession(c echo.Context) error {
	sess, err := h.sessions.EnsureSession("", h.sessionTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": sess.ID()})
}

func (h *handlers) addSwipe(c echo.Context) error {
	var ev cosmos.SwipeEvent
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if ev.PostID == "" || ev.Reaction == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "post_id and reaction are required")
	}
	sess, ok := h.sessions.GetSession(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown or expired session")
	}
	sess.AddSwipe(ev)
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) setPosition(c echo.Context) error {
	var pos cosmos.UserPosition
	if err := c.Bind(&pos); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, ok := h.sessions.GetSession(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown or expired session")
	}
	sess.SetPosition(pos)
	return c.NoContent(http.StatusNoContent)
}

// narratorContext condenses a cached layout plus the session's signals into
// the narrator collaborator's prompt context.
func (h *handlers) narratorContext(c echo.Context) error {
	rec, ok := h.pipeline.Lookup(c.Request().Context(), c.Param("source"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no cosmos for source")
	}

	var swipes []cosmos.SwipeEvent
	var pos *cosmos.UserPosition
	if sid := c.QueryParam("session"); sid != "" {
		if sess, ok := h.sessions.GetSession(sid); ok {
			swipes = sess.Swipes()
			pos = sess.Position()
		}
	}

	nc := cosmos.BuildNarratorContext(rec.Layout, swipes, pos, 10)
	return c.JSON(http.StatusOK, map[string]string{"context": nc.Render()})
}
