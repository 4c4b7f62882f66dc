package handlers

import (
	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/tablestate"
)

const sessionKeyTableState = "users_table_state"

// tableStore restores the operator's users table state from the session.
// Every mutation made through the returned store is written back to the
// session; call release once the request is done with it.
func (h *Handlers) tableStore(c *echo.Context) (store *tablestate.Store, release func()) {
	ctx := c.Request().Context()

	var opts []tablestate.Option
	if raw := h.Sessions.GetBytes(ctx, sessionKeyTableState); len(raw) > 0 {
		state, err := tablestate.Decode(raw)
		if err != nil {
			c.Logger().Warn("discarding unreadable table state", "error", err)
		}
		opts = append(opts, tablestate.WithState(state))
	}

	store = tablestate.New(opts...)
	release = store.Subscribe(func(state tablestate.State) {
		data, err := tablestate.Encode(state)
		if err != nil {
			c.Logger().Error("encode table state", "error", err)
			return
		}
		h.Sessions.Put(ctx, sessionKeyTableState, data)
	})
	return store, release
}
