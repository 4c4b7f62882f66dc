package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usersdesk/usersdesk/internal/http/authn"
	"github.com/usersdesk/usersdesk/internal/http/viewmodels"
	"github.com/usersdesk/usersdesk/internal/http/views"
	"github.com/usersdesk/usersdesk/internal/metrics"
	"github.com/usersdesk/usersdesk/internal/pagewindow"
	"github.com/usersdesk/usersdesk/internal/tablestate"
	"github.com/usersdesk/usersdesk/internal/users"
	"github.com/usersdesk/usersdesk/internal/usersapi"
)

const (
	fetchErrorMessage    = "We couldn't load users right now. Please try again."
	emptyFilteredMessage = "No users match the current filters."
	emptyMessage         = "No users found."
)

// usersRender carries per-request extras into the users view.
type usersRender struct {
	status      int
	fieldErrors users.FieldErrors
	// displayFilters overrides the store's filters in the filter form, so
	// rejected input is shown back to the operator.
	displayFilters *users.Filters
}

// HandleUsers renders the users table. Query parameters, when present,
// replace the persisted table state so list URLs stay bookmarkable.
func (h *Handlers) HandleUsers(c *echo.Context) error {
	store, release := h.tableStore(c)
	defer release()

	opts := usersRender{status: http.StatusOK}
	if values := c.Request().URL.Query(); len(values) > 0 {
		q, errs := users.ParseQuery(values)
		store.SetFilters(q.Filters)
		store.SetPagination(tablestate.Pagination{PageIndex: q.PageIndex, PageSize: q.PageSize})
		store.SetSorting(q.Sort)
		if len(errs) > 0 {
			opts.fieldErrors = errs
			display := rawFilters(values)
			opts.displayFilters = &display
		}
	}
	return h.respondUsers(c, store, opts)
}

func (h *Handlers) HandleUsersSetFilters(c *echo.Context) error {
	store, release := h.tableStore(c)
	defer release()

	if err := c.Request().ParseForm(); err != nil {
		return echo.ErrBadRequest
	}
	values := c.Request().PostForm
	filters, errs := users.ParseFilterForm(values)
	if len(errs) > 0 {
		display := rawFilters(values)
		status := http.StatusUnprocessableEntity
		if isHX(c) {
			// htmx only swaps 2xx responses.
			status = http.StatusOK
		}
		return h.respondUsers(c, store, usersRender{
			status:         status,
			fieldErrors:    errs,
			displayFilters: &display,
		})
	}

	store.SetFilters(filters)
	metrics.TableActionsTotal.WithLabelValues("set_filters").Inc()
	return h.afterTableAction(c, store)
}

func (h *Handlers) HandleUsersResetFilters(c *echo.Context) error {
	store, release := h.tableStore(c)
	defer release()

	store.ResetFilters()
	metrics.TableActionsTotal.WithLabelValues("reset_filters").Inc()
	return h.afterTableAction(c, store)
}

func (h *Handlers) HandleUsersClearFilter(c *echo.Context) error {
	field, ok := users.ParseField(c.FormValue("field"))
	if !ok {
		return echo.ErrBadRequest
	}

	store, release := h.tableStore(c)
	defer release()

	store.UpdateFilter(field, nil)
	metrics.TableActionsTotal.WithLabelValues("clear_filter").Inc()
	return h.afterTableAction(c, store)
}

func (h *Handlers) HandleUsersSort(c *echo.Context) error {
	col, ok := users.ParseSortColumn(c.FormValue("column"))
	if !ok {
		return echo.ErrBadRequest
	}

	store, release := h.tableStore(c)
	defer release()

	store.ToggleSort(col)
	metrics.TableActionsTotal.WithLabelValues("sort").Inc()
	return h.afterTableAction(c, store)
}

func (h *Handlers) HandleUsersPage(c *echo.Context) error {
	index, ok := parsePageValue(c.FormValue("page"))
	if !ok {
		return echo.ErrBadRequest
	}

	store, release := h.tableStore(c)
	defer release()

	store.SetPageIndex(index)
	metrics.TableActionsTotal.WithLabelValues("page").Inc()
	return h.afterTableAction(c, store)
}

func (h *Handlers) HandleUsersPageSize(c *echo.Context) error {
	size, err := strconv.Atoi(strings.TrimSpace(c.FormValue("pageSize")))
	if err != nil || !users.IsPageSize(size) {
		return echo.ErrBadRequest
	}

	store, release := h.tableStore(c)
	defer release()

	store.SetPageSize(size)
	metrics.TableActionsTotal.WithLabelValues("page_size").Inc()
	return h.afterTableAction(c, store)
}

func (h *Handlers) HandleUsersReset(c *echo.Context) error {
	store, release := h.tableStore(c)
	defer release()

	store.ResetStore()
	metrics.TableActionsTotal.WithLabelValues("reset").Inc()
	return h.afterTableAction(c, store)
}

// afterTableAction swaps the results fragment for htmx and redirects back to
// the table otherwise.
func (h *Handlers) afterTableAction(c *echo.Context, store *tablestate.Store) error {
	addVary(c, headerHXRequest, headerHXTarget)
	if isHXTarget(c, views.UsersResultsID) {
		return h.respondUsers(c, store, usersRender{status: http.StatusOK})
	}
	return c.Redirect(http.StatusSeeOther, "/users")
}

func (h *Handlers) respondUsers(c *echo.Context, store *tablestate.Store, opts usersRender) error {
	addVary(c, headerHXRequest, headerHXTarget)
	partial := isHXTarget(c, views.UsersResultsID)

	data := h.buildUsersViewData(c, store, opts, !partial)
	if partial {
		setHXPushURL(c, views.UsersListURL(store.Snapshot().Query()))
		return h.RenderComponentStatus(c, opts.status, views.UsersResults(data))
	}
	return h.RenderComponentStatus(c, opts.status, views.UsersPage(data))
}

// buildUsersViewData fetches the page the store selects. Source failures
// become an inline error state rather than an error page.
func (h *Handlers) buildUsersViewData(c *echo.Context, store *tablestate.Store, opts usersRender, withStats bool) viewmodels.UsersViewData {
	ctx := c.Request().Context()
	principal, _ := authn.PrincipalFromContext(c)

	data := viewmodels.UsersViewData{
		Layout:      h.LayoutData(c, "Users"),
		FieldErrors: opts.fieldErrors,
		CanManage:   principal.CanManageUsers(),
	}

	page, err := h.Source.ListUsers(ctx, store.Snapshot().Query())
	if err == nil && page.PageCount > 0 && store.Pagination().PageIndex >= page.PageCount {
		// The persisted page no longer exists; fall back to the last one.
		store.SetPageIndex(page.PageCount - 1)
		page, err = h.Source.ListUsers(ctx, store.Snapshot().Query())
	}
	state := store.Snapshot()
	q := state.Query()

	data.Filters = state.Filters
	if opts.displayFilters != nil {
		data.Filters = *opts.displayFilters
	}
	data.FilterOpen = !state.Filters.IsEmpty()
	data.Sorting = state.Sorting
	data.PageSize = q.Limit()

	if err != nil {
		if errors.Is(err, usersapi.ErrFetch) {
			c.Logger().Warn("users fetch failed", "fetch_key", state.FetchKey(), "error", err)
		} else {
			c.Logger().Error("users fetch failed", "fetch_key", state.FetchKey(), "error", err)
		}
		data.FetchError = fetchErrorMessage
		data.CurrentPage = q.PageNumber()
		data.EmptyStateMsg = fetchErrorMessage
		return data
	}

	data.Rows = page.Data
	data.TotalItems = page.TotalItems
	data.PageCount = page.PageCount
	data.CurrentPage = clampPage(q.PageNumber(), page.PageCount)
	data.Window = pagewindow.Compute(page.PageCount, data.CurrentPage)
	data.HasPrev = data.CurrentPage > 1
	data.HasNext = data.CurrentPage < page.PageCount
	data.ShowingFrom, data.ShowingTo = showingRange(page.TotalItems, q.Offset(), len(page.Data))
	data.HasUsers = len(page.Data) > 0
	if !data.HasUsers {
		data.EmptyStateMsg = emptyMessage
		if !state.Filters.IsEmpty() {
			data.EmptyStateMsg = emptyFilteredMessage
		}
	}

	if withStats {
		stats, err := h.Source.Stats(ctx)
		if err != nil {
			c.Logger().Warn("users stats failed", "error", err)
		}
		data.Stats = statCards(stats, err == nil)
		data.StatsPartial = err == nil && stats.Partial
	}
	return data
}

func statCards(stats users.Stats, ok bool) []viewmodels.StatCard {
	value := func(n int64, known bool) string {
		if !ok || !known {
			return "—"
		}
		return formatCount(n)
	}
	return []viewmodels.StatCard{
		{Label: "Users", Value: value(stats.Total, true)},
		{Label: "Active Users", Value: value(stats.Active, true)},
		{Label: "Users with Loans", Value: value(stats.WithLoans, !stats.Partial)},
		{Label: "Users with Savings", Value: value(stats.WithSavings, !stats.Partial)},
	}
}

var countPrinter = message.NewPrinter(language.English)

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}

// rawFilters collects submitted filter values without validating them.
func rawFilters(values url.Values) users.Filters {
	var f users.Filters
	for _, field := range users.Fields {
		if v := strings.TrimSpace(values.Get(string(field))); v != "" {
			f = f.With(field, users.StringPtr(v))
		}
	}
	return f
}
