package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/http/viewmodels"
)

const (
	flashToastCookieName = "ud_toast"
	flashToastMaxAge     = 30
)

// flash queues a one-shot toast that survives the next redirect.
func flash(c *echo.Context, category, title, description string) {
	setFlashToast(c, viewmodels.ToastViewData{Category: category, Title: title, Description: description})
}

func setFlashToast(c *echo.Context, toast viewmodels.ToastViewData) {
	value, ok := encodeToast(toast)
	if !ok {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashToastCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   flashToastMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashToast reads and clears the pending toast.
func popFlashToast(c *echo.Context) *viewmodels.ToastViewData {
	cookie, err := c.Cookie(flashToastCookieName)
	if err != nil || cookie == nil {
		return nil
	}

	c.SetCookie(&http.Cookie{
		Name:     flashToastCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	toast, ok := decodeToast(cookie.Value)
	if !ok {
		return nil
	}
	return &toast
}

func encodeToast(toast viewmodels.ToastViewData) (string, bool) {
	toast, ok := cleanToast(toast)
	if !ok {
		return "", false
	}
	payload, err := json.Marshal(toast)
	if err != nil {
		return "", false
	}
	return base64.RawURLEncoding.EncodeToString(payload), true
}

func decodeToast(value string) (viewmodels.ToastViewData, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return viewmodels.ToastViewData{}, false
	}
	var toast viewmodels.ToastViewData
	if err := json.Unmarshal(raw, &toast); err != nil {
		return viewmodels.ToastViewData{}, false
	}
	return cleanToast(toast)
}

func cleanToast(toast viewmodels.ToastViewData) (viewmodels.ToastViewData, bool) {
	toast.Category = normalizeToastCategory(toast.Category)
	toast.Title = strings.TrimSpace(toast.Title)
	toast.Description = strings.TrimSpace(toast.Description)
	return toast, toast.Title != "" || toast.Description != ""
}

func normalizeToastCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	switch category {
	case "success", "error", "warning", "info":
		return category
	default:
		return "info"
	}
}
