package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/http/authn"
	"github.com/usersdesk/usersdesk/internal/http/viewmodels"
	"github.com/usersdesk/usersdesk/internal/http/views"
	"github.com/usersdesk/usersdesk/internal/metrics"
	"github.com/usersdesk/usersdesk/internal/users"
)

func (h *Handlers) HandleUserShow(c *echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return RenderNotFound(c)
	}

	details, err := h.Source.GetUser(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return RenderNotFound(c)
		}
		return h.RenderError(c, err)
	}

	principal, _ := authn.PrincipalFromContext(c)
	layout := h.LayoutData(c, "User Details")
	layout.ActivePath = "/users"
	return h.RenderComponent(c, views.UserShowPage(viewmodels.UserShowViewData{
		Layout:    layout,
		User:      details,
		CanManage: principal.CanManageUsers(),
	}))
}

// HandleUserStatus blacklists or activates a user. Routed behind the admin
// role check.
func (h *Handlers) HandleUserStatus(c *echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	status, ok := users.ParseStatus(c.FormValue("status"))
	if id == "" || !ok {
		return echo.ErrBadRequest
	}

	target := views.UserURL(id)
	if err := h.Source.SetUserStatus(c.Request().Context(), id, status); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return RenderNotFound(c)
		}
		c.Logger().Error("set user status", "user_id", id, "status", string(status), "error", err)
		flash(c, "error", "Status not changed", "The users service did not accept the change. Please try again.")
		return c.Redirect(http.StatusSeeOther, target)
	}

	metrics.UserStatusChangesTotal.WithLabelValues(string(status)).Inc()
	flash(c, "success", statusChangedTitle(status), "")
	return c.Redirect(http.StatusSeeOther, target)
}

func statusChangedTitle(status users.Status) string {
	switch status {
	case users.StatusBlacklisted:
		return "User blacklisted"
	case users.StatusActive:
		return "User activated"
	default:
		return "User marked " + strings.ToLower(status.Label())
	}
}
