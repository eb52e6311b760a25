package scheduling

import (
	"strings"
	"time"
)

// View is the calendar granularity.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView accepts day, week or month in any case. An empty string is
// the day view.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewDay:
		return ViewDay, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	}
	return "", &InvalidParameterError{Field: "view", Reason: "want day, week or month"}
}

// ActionKind names a navigation transition.
type ActionKind string

const (
	ActionPrevious ActionKind = "PREVIOUS"
	ActionNext     ActionKind = "NEXT"
	ActionToday    ActionKind = "TODAY"
	ActionSetDate  ActionKind = "SET_DATE"
	ActionSetView  ActionKind = "SET_VIEW"
)

// ParseActionKind accepts the action names case-insensitively; PREV is an
// alias for PREVIOUS.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case ActionPrevious, "PREV":
		return ActionPrevious, nil
	case ActionNext, ActionToday, ActionSetDate, ActionSetView:
		return k, nil
	}
	return "", &InvalidParameterError{Field: "action", Reason: "unknown navigation action"}
}

// Action is one input to the Navigator. Date is read by SET_DATE, View by
// SET_VIEW.
type Action struct {
	Kind ActionKind
	Date time.Time
	View View
}

// Change is what the Navigator reports after a transition. When
// DateChanged is set the caller must recompute availability for Date.
type Change struct {
	Date        time.Time
	View        View
	DateChanged bool
}

// Navigator tracks the displayed date and view. It does no scheduling
// itself; Dispatch reports date changes and the caller acts on them.
// A Navigator is not safe for concurrent use.
type Navigator struct {
	date time.Time
	view View
	now  func() time.Time
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) NavigatorOption {
	return func(n *Navigator) { n.now = now }
}

// WithDate starts the cursor on date instead of today.
func WithDate(date time.Time) NavigatorOption {
	return func(n *Navigator) { n.date = startOfDay(date) }
}

// NewNavigator returns a cursor on today (or the WithDate date) in view.
func NewNavigator(view View, opts ...NavigatorOption) *Navigator {
	n := &Navigator{view: view, now: time.Now}
	for _, o := range opts {
		o(n)
	}
	if n.view == "" {
		n.view = ViewDay
	}
	if n.date.IsZero() {
		n.date = startOfDay(n.now())
	}
	return n
}

// Date is the current cursor, always at local midnight.
func (n *Navigator) Date() time.Time { return n.date }

// View is the current granularity.
func (n *Navigator) View() View { return n.view }

// Dispatch applies a and reports the resulting state.
func (n *Navigator) Dispatch(a Action) (Change, error) {
	prev := n.date
	switch a.Kind {
	case ActionPrevious:
		n.date = shift(n.date, n.view, -1)
	case ActionNext:
		n.date = shift(n.date, n.view, 1)
	case ActionToday:
		n.date = startOfDay(n.now())
	case ActionSetDate:
		if a.Date.IsZero() {
			return n.state(false), &InvalidParameterError{Field: "date", Reason: "required for SET_DATE"}
		}
		n.date = startOfDay(a.Date)
	case ActionSetView:
		v, err := ParseView(string(a.View))
		if err != nil {
			return n.state(false), err
		}
		n.view = v
	default:
		return n.state(false), &InvalidParameterError{Field: "action", Reason: "unknown navigation action"}
	}
	return n.state(!n.date.Equal(prev)), nil
}

// Range is the visible span [from, to) for the current view. Weeks start
// on Sunday.
func (n *Navigator) Range() (from, to time.Time) {
	switch n.view {
	case ViewWeek:
		from = n.date.AddDate(0, 0, -int(n.date.Weekday()))
		return from, from.AddDate(0, 0, 7)
	case ViewMonth:
		y, m, _ := n.date.Date()
		from = time.Date(y, m, 1, 0, 0, 0, 0, n.date.Location())
		return from, from.AddDate(0, 1, 0)
	default:
		return n.date, n.date.AddDate(0, 0, 1)
	}
}

func (n *Navigator) state(changed bool) Change {
	return Change{Date: n.date, View: n.view, DateChanged: changed}
}

func shift(d time.Time, v View, dir int) time.Time {
	switch v {
	case ViewWeek:
		return d.AddDate(0, 0, 7*dir)
	case ViewMonth:
		return addMonthsClamped(d, dir)
	default:
		return d.AddDate(0, 0, dir)
	}
}

// addMonthsClamped moves by n months and clamps the day so that Jan 31
// plus one month is Feb 28/29 rather than early March.
func addMonthsClamped(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, d.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}
