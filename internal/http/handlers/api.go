package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/users"
	"github.com/usersdesk/usersdesk/internal/usersapi"
)

type apiError struct {
	Error  string            `json:"error"`
	Fields users.FieldErrors `json:"fields,omitempty"`
}

// HandleAPIUsers serves one page of users as JSON. The query string uses the
// same parameters as the bookmarkable table URL.
func (h *Handlers) HandleAPIUsers(c *echo.Context) error {
	q, errs := users.ParseQuery(c.Request().URL.Query())
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, apiError{Error: "invalid filters", Fields: errs})
	}

	page, err := h.Source.ListUsers(c.Request().Context(), q)
	if err != nil {
		return h.apiSourceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handlers) HandleAPIUser(c *echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	details, err := h.Source.GetUser(c.Request().Context(), id)
	if err != nil {
		return h.apiSourceError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}

func (h *Handlers) HandleAPIStats(c *echo.Context) error {
	stats, err := h.Source.Stats(c.Request().Context())
	if err != nil {
		return h.apiSourceError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handlers) apiSourceError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, users.ErrNotFound):
		return c.JSON(http.StatusNotFound, apiError{Error: "not found"})
	case errors.Is(err, usersapi.ErrFetch):
		c.Logger().Warn("users source unavailable", "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusBadGateway, apiError{Error: "users source unavailable"})
	default:
		requestID, _ := c.Get(ContextKeyRequestID).(string)
		c.Logger().Error("api error", "request_id", requestID, "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, apiError{Error: InternalErrorCode})
	}
}
