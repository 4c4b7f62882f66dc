package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/usersdesk/usersdesk/internal/auth"
	"github.com/usersdesk/usersdesk/internal/auth/providers"
	"github.com/usersdesk/usersdesk/internal/db"
	"github.com/usersdesk/usersdesk/internal/http/authn"
	"github.com/usersdesk/usersdesk/internal/http/viewmodels"
	"github.com/usersdesk/usersdesk/internal/http/views"
	"github.com/usersdesk/usersdesk/internal/metrics"
)

const (
	loginFailedMessage      = "Invalid email or password."
	loginRateLimitedMessage = "Too many login attempts. Try again in a minute."
)

func (h *Handlers) HandleLoginGet(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	if _, ok, err := authn.LoadPrincipal(c, h.Sessions, h.Q); err != nil {
		return err
	} else if ok {
		return c.Redirect(http.StatusSeeOther, "/users")
	}

	count, err := h.Q.CountAuthUsers(c.Request().Context())
	if err != nil {
		return err
	}

	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	data := viewmodels.LoginViewData{
		CSRFToken:     csrfToken,
		Next:          authn.SanitizeNext(c.QueryParam("next")),
		SetupRequired: count == 0,
		Toast:         popFlashToast(c),
	}
	return h.RenderComponent(c, views.LoginPage(data))
}

func (h *Handlers) HandleLoginPost(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	ctx := c.Request().Context()
	rawEmail := c.FormValue("email")
	password := c.FormValue("password")
	next := authn.SanitizeNext(c.FormValue("next"))

	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	data := viewmodels.LoginViewData{
		CSRFToken: csrfToken,
		Email:     strings.TrimSpace(rawEmail),
		Next:      next,
	}

	if !h.LoginLimiter.Allow(c.RealIP()) {
		metrics.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
		data.ErrorMessage = loginRateLimitedMessage
		return h.RenderComponentStatus(c, http.StatusTooManyRequests, views.LoginPage(data))
	}

	count, err := h.Q.CountAuthUsers(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		data.SetupRequired = true
		return h.RenderComponent(c, views.LoginPage(data))
	}

	if errs := auth.ValidateLogin(rawEmail, password); !errs.Empty() {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_input").Inc()
		data.EmailError = errs.Email
		data.PasswordError = errs.Password
		return h.RenderComponentStatus(c, http.StatusUnprocessableEntity, views.LoginPage(data))
	}

	principal, err := providers.NewPasswordProvider(h.Q).Authenticate(ctx, rawEmail, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
			data.ErrorMessage = loginFailedMessage
			return h.RenderComponentStatus(c, http.StatusUnauthorized, views.LoginPage(data))
		}
		return err
	}

	if err := h.Sessions.RenewToken(ctx); err != nil {
		return err
	}
	h.Sessions.Put(ctx, authn.SessionKeyUserID, principal.UserID)
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	if err := h.Q.UpdateAuthUserLoginMeta(ctx, db.UpdateAuthUserLoginMetaParams{
		ID:          principal.UserID,
		LastLoginAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
		LastLoginIp: strings.TrimSpace(c.RealIP()),
	}); err != nil {
		c.Logger().Warn("record login metadata", "user_id", principal.UserID, "error", err)
	}

	if next != "" {
		return c.Redirect(http.StatusSeeOther, next)
	}
	return c.Redirect(http.StatusSeeOther, "/users")
}

func (h *Handlers) HandleLogoutPost(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	addVary(c, "HX-Request")
	if err := h.Sessions.Destroy(c.Request().Context()); err != nil {
		return err
	}
	flash(c, "success", "Signed out", "")

	if isHX(c) {
		setHXRedirect(c, "/login")
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}
