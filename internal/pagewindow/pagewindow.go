// Package pagewindow computes the compressed list of page labels rendered by
// pagination controls.
package pagewindow

import (
	"errors"
	"math"
	"strconv"
)

const (
	// MaxVisiblePages is the largest page count rendered without ellipses.
	MaxVisiblePages = 7
	// PageThreshold is how many pages at either edge keep the window pinned.
	PageThreshold = 3
	// EllipsisLabel is the text rendered for an elided run of pages.
	EllipsisLabel = "..."
)

// ErrInvalidRange reports page numbers that cannot describe a window.
var ErrInvalidRange = errors.New("pagewindow: invalid range")

// Entry is either a 1-based page number or an ellipsis marker.
type Entry struct {
	Page     int
	Ellipsis bool
}

func page(n int) Entry { return Entry{Page: n} }

var ellipsis = Entry{Ellipsis: true}

// IsPage reports whether the entry is a clickable page number.
func (e Entry) IsPage() bool {
	return !e.Ellipsis && e.Page > 0
}

func (e Entry) String() string {
	if e.Ellipsis {
		return EllipsisLabel
	}
	return strconv.Itoa(e.Page)
}

// Compute returns the window for pageCount pages with currentPage selected.
// currentPage is clamped into [1, pageCount]; a non-positive pageCount yields
// an empty window.
func Compute(pageCount, currentPage int) []Entry {
	if pageCount <= 0 {
		return []Entry{}
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > pageCount {
		currentPage = pageCount
	}

	if pageCount <= MaxVisiblePages {
		out := make([]Entry, 0, pageCount)
		for i := 1; i <= pageCount; i++ {
			out = append(out, page(i))
		}
		return out
	}

	if currentPage <= PageThreshold {
		return []Entry{page(1), page(2), page(3), page(4), ellipsis, page(pageCount)}
	}

	if currentPage >= pageCount-PageThreshold+1 {
		return []Entry{
			page(1),
			ellipsis,
			page(pageCount - 3),
			page(pageCount - 2),
			page(pageCount - 1),
			page(pageCount),
		}
	}

	return []Entry{
		page(1),
		ellipsis,
		page(currentPage - 1),
		page(currentPage),
		page(currentPage + 1),
		ellipsis,
		page(pageCount),
	}
}

// Validate checks numbers that arrive as untyped JSON numbers before they are
// converted to ints. NaN, infinities and negative counts are ErrInvalidRange.
func Validate(pageCount, currentPage float64) error {
	if math.IsNaN(pageCount) || math.IsInf(pageCount, 0) || pageCount < 0 {
		return ErrInvalidRange
	}
	if math.IsNaN(currentPage) || math.IsInf(currentPage, 0) {
		return ErrInvalidRange
	}
	if pageCount > math.MaxInt32 || math.Abs(currentPage) > math.MaxInt32 {
		return ErrInvalidRange
	}
	return nil
}
