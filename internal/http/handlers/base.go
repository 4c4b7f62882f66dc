// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/usersdesk/usersdesk/internal/config"
	"github.com/usersdesk/usersdesk/internal/db"
	"github.com/usersdesk/usersdesk/internal/http/authn"
	"github.com/usersdesk/usersdesk/internal/http/viewmodels"
	"github.com/usersdesk/usersdesk/internal/users"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// AuthStore is the subset of db.Queries the login flow needs.
type AuthStore interface {
	authn.PrincipalStore
	CountAuthUsers(ctx context.Context) (int64, error)
	GetAuthUserByEmail(ctx context.Context, email string) (db.AuthUser, error)
	UpdateAuthUserLoginMeta(ctx context.Context, arg db.UpdateAuthUserLoginMetaParams) error
}

var _ AuthStore = (*db.Queries)(nil)

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg      config.Config
	Q        AuthStore
	Sessions *scs.SessionManager

	// Source serves the users table; SourceName labels it in the footer.
	Source     users.Source
	SourceName string

	LoginLimiter *LoginLimiter
}

// LayoutData builds the common layout data for page rendering.
func (h *Handlers) LayoutData(c *echo.Context, title string) viewmodels.LayoutData {
	principal, ok := authn.PrincipalFromContext(c)
	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return viewmodels.LayoutData{
		Title:      title,
		CSRFToken:  csrfToken,
		UserEmail:  principal.Email,
		UserRole:   principal.Role,
		IsAdmin:    ok && principal.IsAdmin(),
		Toast:      popFlashToast(c),
		ActivePath: c.Request().URL.Path,
		SourceName: h.SourceName,
	}
}

// RenderComponent renders a templ component as the response.
func (h *Handlers) RenderComponent(c *echo.Context, component templ.Component) error {
	return h.RenderComponentStatus(c, http.StatusOK, component)
}

// RenderComponentStatus renders a templ component with an explicit status.
func (h *Handlers) RenderComponentStatus(c *echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/html; charset=utf-8")
	if status != http.StatusOK {
		c.Response().WriteHeader(status)
	}
	if err := component.Render(c.Request().Context(), c.Response()); err != nil {
		return h.RenderError(c, err)
	}
	return nil
}

// RenderError returns a plain text error response.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.String(http.StatusInternalServerError, msg)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HandleRoot sends signed-in operators to the users table.
func (h *Handlers) HandleRoot(c *echo.Context) error {
	return c.Redirect(http.StatusSeeOther, "/users")
}

// ParseBoolForm parses a form value as a boolean.
func ParseBoolForm(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
