package dashboard

import "github.com/emanueledman/fixa-admin/internal/models"

// State is the filter/page state of one dashboard view.
type State struct {
	Filter Filter `json:"filter"`
	Page   int    `json:"page"`
}

// NewState returns the default state: no filters, first page.
func NewState() State {
	return State{Page: 1}
}

// Action is a user input that changes the view state.
type Action interface {
	apply(State) State
}

// SearchChanged sets the search text.
type SearchChanged struct{ Text string }

// StatusChanged sets the status filter; empty clears it.
type StatusChanged struct{ Status models.Status }

// UrgencyChanged sets the urgency filter; empty clears it.
type UrgencyChanged struct{ Urgency models.Urgency }

// PageChanged moves to another page without touching the filters.
type PageChanged struct{ Page int }

// FiltersCleared resets the state to defaults.
type FiltersCleared struct{}

func (a SearchChanged) apply(s State) State {
	if s.Filter.Search == a.Text {
		return s
	}
	s.Filter.Search = a.Text
	s.Page = 1
	return s
}

func (a StatusChanged) apply(s State) State {
	if s.Filter.Status == a.Status {
		return s
	}
	s.Filter.Status = a.Status
	s.Page = 1
	return s
}

func (a UrgencyChanged) apply(s State) State {
	if s.Filter.Urgency == a.Urgency {
		return s
	}
	s.Filter.Urgency = a.Urgency
	s.Page = 1
	return s
}

func (a PageChanged) apply(s State) State {
	s.Page = a.Page
	return s
}

func (FiltersCleared) apply(State) State {
	return NewState()
}

// Apply returns the state after a.
func (s State) Apply(a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// View owns the in-memory record collection of one dashboard view together
// with its state. It is not safe for concurrent use; each stream or request
// owns its own View.
type View struct {
	records  []models.Problem
	state    State
	pageSize int
}

// NewView creates a view with the given initial state.
func NewView(state State, pageSize int) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if state.Page < 1 {
		state.Page = 1
	}
	return &View{state: state, pageSize: pageSize}
}

// Replace swaps the whole record collection for a new snapshot.
func (v *View) Replace(snapshot []models.Problem) {
	v.records = append([]models.Problem(nil), snapshot...)
}

// Records returns the current snapshot.
func (v *View) Records() []models.Problem { return v.records }

// Dispatch applies an action to the view state.
func (v *View) Dispatch(a Action) {
	v.state = v.state.Apply(a)
}

// State returns the current state.
func (v *View) State() State { return v.state }

// Current derives and paginates the visible page, storing the clamped page
// number back into the state.
func (v *View) Current() Page {
	page := Paginate(Derive(v.records, v.state.Filter), v.state.Page, v.pageSize)
	v.state.Page = page.Number
	return page
}
