package httpapp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/usersdesk/usersdesk/internal/auth"
	"github.com/usersdesk/usersdesk/internal/config"
	"github.com/usersdesk/usersdesk/internal/http/authn"
	"github.com/usersdesk/usersdesk/internal/http/handlers"
	"github.com/usersdesk/usersdesk/internal/logging"
	"github.com/usersdesk/usersdesk/internal/metrics"
	"github.com/usersdesk/usersdesk/internal/users"
)

const maxRequestIDLength = 128

// Deps are the collaborators the HTTP server is built from.
type Deps struct {
	Cfg          config.Config
	Queries      handlers.AuthStore
	Sessions     *scs.SessionManager
	Source       users.Source
	SourceName   string
	LoginLimiter *handlers.LoginLimiter
	Logger       *slog.Logger
}

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(deps Deps) (*EchoServer, error) {
	if deps.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if deps.Queries == nil {
		return nil, errors.New("auth store is required")
	}
	if deps.Source == nil {
		return nil, errors.New("users source is required")
	}

	h := &handlers.Handlers{
		Cfg:          deps.Cfg,
		Q:            deps.Queries,
		Sessions:     deps.Sessions,
		Source:       deps.Source,
		SourceName:   deps.SourceName,
		LoginLimiter: deps.LoginLimiter,
	}
	es := &EchoServer{h: h, e: echo.New()}
	if deps.Logger != nil {
		es.e.Logger = logging.Component(deps.Logger, "http")
	}
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.Use(requestIDMiddleware)
	es.e.Use(requestMetricsMiddleware)
	es.e.Use(middleware.Recover())

	es.e.GET("/healthz", es.h.HandleHealthz)
	es.e.Static("/static", "web/static")

	app := es.e.Group("")
	app.Use(echo.WrapMiddleware(es.h.Sessions.LoadAndSave))
	app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   es.h.Cfg.AuthCookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	app.GET("/login", es.h.HandleLoginGet)
	app.POST("/login", es.h.HandleLoginPost)
	app.POST("/logout", es.h.HandleLogoutPost)

	authed := app.Group("")
	authed.Use(authn.RequireAuth(es.h.Sessions, es.h.Q))
	authed.GET("/", es.h.HandleRoot)
	authed.GET("/users", es.h.HandleUsers)
	authed.POST("/users/filters", es.h.HandleUsersSetFilters)
	authed.POST("/users/filters/reset", es.h.HandleUsersResetFilters)
	authed.POST("/users/filters/clear", es.h.HandleUsersClearFilter)
	authed.POST("/users/sort", es.h.HandleUsersSort)
	authed.POST("/users/page", es.h.HandleUsersPage)
	authed.POST("/users/page-size", es.h.HandleUsersPageSize)
	authed.POST("/users/reset", es.h.HandleUsersReset)
	authed.GET("/users/:id", es.h.HandleUserShow)
	authed.POST("/users/:id/status", es.h.HandleUserStatus, authn.RequireRole(auth.RoleAdmin))

	authed.GET("/api/users", es.h.HandleAPIUsers)
	authed.GET("/api/users/stats", es.h.HandleAPIStats)
	authed.GET("/api/users/:id", es.h.HandleAPIUser)
}

func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

func requestMetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		start := time.Now()
		err := next(c)

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method

		status := http.StatusOK
		if resp, uErr := echo.UnwrapResponse(c.Response()); uErr == nil && resp.Status != 0 {
			status = resp.Status
		}
		if err != nil {
			status = httpStatusFromError(err)
		}

		metrics.HTTPRequestsTotal.WithLabelValues(route, method, statusClass(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		return err
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	if err == nil {
		return
	}

	status := httpStatusFromError(err)
	switch status {
	case http.StatusInternalServerError:
		_ = es.h.RenderError(c, err)
	case http.StatusNotFound:
		_ = handlers.RenderNotFound(c)
	case http.StatusForbidden:
		if isHTMLRequest(c) {
			_ = es.h.RenderForbidden(c)
			return
		}
		_ = c.String(status, http.StatusText(status))
	default:
		text := http.StatusText(status)
		if text == "" {
			text = http.StatusText(http.StatusInternalServerError)
		}
		_ = c.String(status, text)
	}
}

func isHTMLRequest(c *echo.Context) bool {
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return false
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

func httpStatusFromError(err error) int {
	var coder interface{ StatusCode() int }
	if errors.As(err, &coder) {
		if code := coder.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// Handler exposes the router for an http.Server.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}
