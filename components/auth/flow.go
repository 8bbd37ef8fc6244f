// components/auth/flow.go
//
// One client's pass through the auth screen.
//
// A Flow owns an auth.Controller and plays every screen-side port for it:
// haptic pulses, navigation, and alerts are recorded as Events and handed
// back to the client with the next response.  An open alert is held as the
// pending Prompt until the client presses one of its buttons.
//
//------------------------------------------------------------------------------

package auth

import (
	"errors"
	"sync"

	"github.com/yanizio/forma/internal/auth"
)

// DismissLabel presses the implicit button of an alert without actions.
const DismissLabel = "OK"

var (
	// ErrNoPrompt is returned by Press when no alert is open.
	ErrNoPrompt = errors.New("auth flow: no open prompt")

	// ErrUnknownAction is returned by Press for a label the open alert
	// does not offer.
	ErrUnknownAction = errors.New("auth flow: unknown prompt action")
)

// EventKind tags an Event.
type EventKind string

const (
	EventImpact   EventKind = "impact"
	EventNotify   EventKind = "notify"
	EventNavigate EventKind = "navigate"
	EventAlert    EventKind = "alert"
)

// Event is one screen-side effect, in emission order.
type Event struct {
	Seq    int              `json:"seq"`
	Kind   EventKind        `json:"kind"`
	Impact auth.ImpactStyle `json:"impact,omitempty"`
	Notify auth.NotifyKind  `json:"notify,omitempty"`
	Route  auth.Route       `json:"route,omitempty"`
	Title  string           `json:"title,omitempty"`
}

// Prompt is the alert currently shown.
type Prompt struct {
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Actions []string `json:"actions"`

	handlers []auth.Action
}

// Flow implements auth.Feedback, auth.Navigator, and auth.Prompter.
type Flow struct {
	ID  string
	ctl *auth.Controller

	mu     sync.Mutex
	seq    int
	events []Event
	route  auth.Route
	prompt *Prompt
}

var (
	_ auth.Feedback  = (*Flow)(nil)
	_ auth.Navigator = (*Flow)(nil)
	_ auth.Prompter  = (*Flow)(nil)
)

// Controller returns the flow's screen controller.
func (f *Flow) Controller() *auth.Controller { return f.ctl }

func (f *Flow) record(e Event) {
	f.mu.Lock()
	f.seq++
	e.Seq = f.seq
	f.events = append(f.events, e)
	f.mu.Unlock()
}

// Impact records a tap pulse.
func (f *Flow) Impact(style auth.ImpactStyle) {
	f.record(Event{Kind: EventImpact, Impact: style})
}

// Notify records an outcome pattern.
func (f *Flow) Notify(kind auth.NotifyKind) {
	f.record(Event{Kind: EventNotify, Notify: kind})
}

// Replace records navigation and remembers the destination.
func (f *Flow) Replace(route auth.Route) {
	f.mu.Lock()
	f.route = route
	f.mu.Unlock()
	f.record(Event{Kind: EventNavigate, Route: route})
}

// Alert opens a prompt, replacing any prompt still open.
func (f *Flow) Alert(title, msg string, actions ...auth.Action) {
	p := &Prompt{Title: title, Message: msg, handlers: actions}
	for _, a := range actions {
		p.Actions = append(p.Actions, a.Label)
	}
	if len(actions) == 0 {
		p.Actions = []string{DismissLabel}
	}
	f.mu.Lock()
	f.prompt = p
	f.mu.Unlock()
	f.record(Event{Kind: EventAlert, Title: title})
}

// Press closes the open prompt through the button labelled label and runs
// its handler, if any.
func (f *Flow) Press(label string) error {
	f.mu.Lock()
	p := f.prompt
	if p == nil {
		f.mu.Unlock()
		return ErrNoPrompt
	}
	var handler func()
	found := len(p.handlers) == 0 && label == DismissLabel
	for _, a := range p.handlers {
		if a.Label == label {
			handler, found = a.OnPress, true
			break
		}
	}
	if !found {
		f.mu.Unlock()
		return ErrUnknownAction
	}
	f.prompt = nil
	f.mu.Unlock()

	if handler != nil {
		handler()
	}
	return nil
}

// Drain returns and forgets the recorded events.
func (f *Flow) Drain() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.events
	f.events = nil
	return out
}

// Route is the last navigation target, empty while on the auth screen.
func (f *Flow) Route() auth.Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.route
}

// OpenPrompt returns the alert awaiting a press, or nil.
func (f *Flow) OpenPrompt() *Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompt
}

// Close tears down the controller.  Later timer callbacks are dropped.
func (f *Flow) Close() { f.ctl.Close() }
