package handlers

import (
	"strconv"
	"strings"

	"github.com/usersdesk/usersdesk/internal/users"
)

// parsePageValue reads a 1-based page number posted by the pagination
// controls and returns the 0-based index, capped at users.MaxPageIndex.
// ok is false for garbage.
func parsePageValue(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, false
	}
	return users.ClampPageIndex(n - 1), true
}

// clampPage keeps a 1-based page inside [1, totalPages]. With no pages it
// returns 1.
func clampPage(page, totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

func showingRange(totalCount int64, offset, showingCount int) (int, int) {
	if totalCount <= 0 || showingCount <= 0 {
		return 0, 0
	}
	showingFrom := offset + 1
	showingTo := offset + showingCount
	if int64(showingTo) > totalCount {
		showingTo = int(totalCount)
	}
	return showingFrom, showingTo
}
