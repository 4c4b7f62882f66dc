package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/http/views"
)

func (h *Handlers) RenderForbidden(c *echo.Context) error {
	layout := h.LayoutData(c, "Forbidden")
	return h.RenderComponentStatus(c, http.StatusForbidden, views.ForbiddenPage(layout))
}
