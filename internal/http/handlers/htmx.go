package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
)

const (
	headerHXRequest  = "HX-Request"
	headerHXTarget   = "HX-Target"
	headerHXRedirect = "HX-Redirect"
	headerHXPushURL  = "HX-Push-Url"
)

func hxHeader(c *echo.Context, name string) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return strings.TrimSpace(c.Request().Header.Get(name))
}

func isHX(c *echo.Context) bool {
	return strings.EqualFold(hxHeader(c, headerHXRequest), "true")
}

// isHXTarget reports an htmx request that will swap the element with the
// given id.
func isHXTarget(c *echo.Context, target string) bool {
	return isHX(c) && strings.EqualFold(hxHeader(c, headerHXTarget), strings.TrimSpace(target))
}

func setHXRedirect(c *echo.Context, url string) {
	if c == nil {
		return
	}
	c.Response().Header().Set(headerHXRedirect, url)
}

func setHXPushURL(c *echo.Context, url string) {
	if c == nil {
		return
	}
	c.Response().Header().Set(headerHXPushURL, url)
}

// addVary merges tokens into the Vary header without duplicates. A "*"
// already present, or passed in, wins over everything else.
func addVary(c *echo.Context, values ...string) {
	if c == nil || len(values) == 0 {
		return
	}

	header := c.Response().Header()
	tokens := make([]string, 0, len(values)+2)
	for _, line := range header.Values(echo.HeaderVary) {
		tokens = append(tokens, strings.Split(line, ",")...)
	}
	tokens = append(tokens, values...)

	seen := make(map[string]struct{}, len(tokens))
	combined := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if token == "*" {
			header.Set(echo.HeaderVary, "*")
			return
		}
		canonical := http.CanonicalHeaderKey(token)
		key := strings.ToLower(canonical)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		combined = append(combined, canonical)
	}

	if len(combined) == 0 {
		return
	}
	header.Set(echo.HeaderVary, strings.Join(combined, ", "))
}
