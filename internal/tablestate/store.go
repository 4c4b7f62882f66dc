package tablestate

import (
	"sync"

	"github.com/usersdesk/usersdesk/internal/users"
)

// Listener is notified with the new state after every mutation.
type Listener func(State)

// Store is a concurrency-safe holder of one table's State. Every mutator is
// atomic and notifies subscribers synchronously once the lock is released.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithState seeds the store with a previously persisted state.
func WithState(s State) Option {
	return func(st *Store) {
		st.state = s.clone()
	}
}

// New returns a store in the initial state unless an option overrides it.
func New(opts ...Option) *Store {
	st := &Store{state: Initial()}
	for _, opt := range opts {
		if opt != nil {
			opt(st)
		}
	}
	return st
}

// Subscribe registers fn and returns a function that removes it. Listeners
// run in subscription order.
func (st *Store) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	st.mu.Lock()
	st.nextID++
	id := st.nextID
	st.listeners = append(st.listeners, subscription{id: id, fn: fn})
	st.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			defer st.mu.Unlock()
			for i, sub := range st.listeners {
				if sub.id == id {
					st.listeners = append(st.listeners[:i:i], st.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (st *Store) update(mutate func(*State)) {
	st.mu.Lock()
	mutate(&st.state)
	snapshot := st.state.clone()
	listeners := make([]Listener, 0, len(st.listeners))
	for _, sub := range st.listeners {
		listeners = append(listeners, sub.fn)
	}
	st.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.clone())
	}
}

// SetFilters replaces the filters and resets pagination to its initial value.
func (st *Store) SetFilters(f users.Filters) {
	st.update(func(s *State) {
		s.Filters = f.Normalize()
		s.Pagination = InitialPagination()
	})
}

// UpdateFilter sets a single filter field; nil or blank clears it.
// Pagination resets like SetFilters.
func (st *Store) UpdateFilter(field users.Field, value *string) {
	st.update(func(s *State) {
		s.Filters = s.Filters.With(field, value)
		s.Pagination = InitialPagination()
	})
}

// ResetFilters clears every filter and resets pagination.
func (st *Store) ResetFilters() {
	st.update(func(s *State) {
		s.Filters = users.Filters{}
		s.Pagination = InitialPagination()
	})
}

// SetPagination replaces pagination and leaves filters untouched.
func (st *Store) SetPagination(p Pagination) {
	st.update(func(s *State) {
		s.Pagination = p
	})
}

// SetPageIndex moves to page index i. The index is not bounds-checked
// against the page count.
func (st *Store) SetPageIndex(i int) {
	st.update(func(s *State) {
		s.Pagination.PageIndex = i
	})
}

// SetPageSize changes the page size and returns to the first page.
func (st *Store) SetPageSize(n int) {
	st.update(func(s *State) {
		s.Pagination = Pagination{PageIndex: 0, PageSize: n}
	})
}

// SetSorting replaces the sort order. Pagination is kept.
func (st *Store) SetSorting(sort users.Sort) {
	st.update(func(s *State) {
		s.Sorting = sort
	})
}

// ToggleSort cycles col through ascending, descending and unsorted.
// Selecting a different column starts it ascending.
func (st *Store) ToggleSort(col users.SortColumn) {
	st.update(func(s *State) {
		switch {
		case s.Sorting.Column != col:
			s.Sorting = users.Sort{Column: col}
		case !s.Sorting.Desc:
			s.Sorting.Desc = true
		default:
			s.Sorting = users.Sort{}
		}
	})
}

// ResetStore returns filters, pagination and sorting to their initial values.
func (st *Store) ResetStore() {
	st.update(func(s *State) {
		*s = Initial()
	})
}

func (st *Store) Filters() users.Filters {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Filters.Clone()
}

func (st *Store) Pagination() Pagination {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Pagination
}

func (st *Store) Sorting() users.Sort {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Sorting
}

// Snapshot returns a copy of the whole state.
func (st *Store) Snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.clone()
}
