// internal/auth/controller.go
//
// Auth submission controller.
//
// Context
// -------
// The controller drives the auth screen on top of a formstate.Store.  It
// owns the login/register mode, the password visibility toggles, and the
// submission state machine:
//
//	Idle → Submitting → Success | Failed → Idle
//
// Submit validates the whole form first.  A failed check emits an error
// haptic and stays Idle without calling the credential service.  A passing
// check enters Submitting, calls Login or Register, and branches:
//
//   - success in login mode navigates to the main app,
//   - success in register mode shows a confirmation alert whose button
//     navigates,
//   - a rejected result alerts with the service message or the mode default,
//   - a service error (or panic) is logged and alerts with a generic message.
//
// The return to Idle always runs, whatever the branch.
//
// Concurrency
// -----------
// One submission may be in flight per controller.  Submit, ToggleMode, and
// UseDemo return ErrSubmitting while it is.  The 100ms choreography delays
// (email restore after a toggle, re-validation after demo-fill) run on the
// injected clock and are dropped once the controller is closed.
//
// Notes
// -----
//   - Subscribers and ports are always called without the controller lock.
//   - Oxford commas, two spaces after periods.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/forma/internal/clock"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/formstate"
	"github.com/yanizio/forma/internal/message"
	"github.com/yanizio/forma/internal/metrics"
	"github.com/yanizio/forma/internal/validation"
)

// DefaultChoreographyDelay separates a bulk field change from its follow-up.
const DefaultChoreographyDelay = 100 * time.Millisecond

var (
	// ErrSubmitting is returned while a submission is in flight.
	ErrSubmitting = errors.New("auth: submission in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("auth: controller closed")
)

// State is the submission state.
type State uint8

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear by name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Transition is one state change.
type Transition struct {
	From State
	To   State
}

// OutcomeKind classifies how a Submit call ended.
type OutcomeKind string

const (
	OutcomeSuccess         OutcomeKind = "success"
	OutcomeInvalidForm     OutcomeKind = "invalid_form"
	OutcomeServiceFailure  OutcomeKind = "service_failure"
	OutcomeUnexpectedError OutcomeKind = "unexpected_error"
)

// Outcome describes a finished Submit.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Email   string      `json:"email,omitempty"`
	Title   string      `json:"title,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Options wires a Controller.  Nil ports become no-ops.
type Options struct {
	Feedback          Feedback
	Navigator         Navigator
	Prompter          Prompter
	Messages          *message.Catalog
	DemoAccount       credential.Account
	ChoreographyDelay time.Duration
	Clock             clock.Clock
}

// Controller runs one auth screen.
type Controller struct {
	store *formstate.Store
	creds Credentials
	fb    Feedback
	nav   Navigator
	alert Prompter
	msgs  *message.Catalog
	demo  credential.Account
	delay time.Duration
	clk   clock.Clock

	mu            sync.Mutex
	state         State
	busy          bool
	closed        bool
	isLogin       bool
	previousEmail string
	showPassword  bool
	showConfirm   bool
	timers        map[choreo]*pending
	subs          map[int]func(Transition)
	nextSub       int
}

// New returns a Controller in login mode over store.
func New(store *formstate.Store, creds Credentials, o Options) *Controller {
	if o.Feedback == nil {
		o.Feedback = nopFeedback{}
	}
	if o.Navigator == nil {
		o.Navigator = nopNavigator{}
	}
	if o.Prompter == nil {
		o.Prompter = nopPrompter{}
	}
	if o.Messages == nil {
		o.Messages = message.Default()
	}
	if o.ChoreographyDelay <= 0 {
		o.ChoreographyDelay = DefaultChoreographyDelay
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	return &Controller{
		store:   store,
		creds:   creds,
		fb:      o.Feedback,
		nav:     o.Navigator,
		alert:   o.Prompter,
		msgs:    o.Messages,
		demo:    o.DemoAccount,
		delay:   o.ChoreographyDelay,
		clk:     o.Clock,
		isLogin: true,
		timers:  make(map[choreo]*pending),
		subs:    make(map[int]func(Transition)),
	}
}

// Store exposes the underlying form state.
func (c *Controller) Store() *formstate.Store { return c.store }

/*──────────────────────────── submission ───────────────────────────────────*/

// Submit validates the form and, when it passes, calls the credential
// service.  A call made while another is in flight returns ErrSubmitting and
// has no effect.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return Outcome{}, ErrClosed
	case c.busy:
		c.mu.Unlock()
		return Outcome{}, ErrSubmitting
	}
	c.busy = true
	isLogin := c.isLogin
	c.mu.Unlock()

	mode := modeName(isLogin)
	vals := c.store.Values()
	if !c.store.ValidateAll(vals, isLogin) {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		c.fb.Notify(NotifyError)
		metrics.SubmissionsTotal.WithLabelValues(mode, string(OutcomeInvalidForm)).Inc()
		return Outcome{Kind: OutcomeInvalidForm}, nil
	}

	c.setState(Submitting)
	defer c.finish()
	c.fb.Impact(ImpactMedium)

	res, err := c.call(ctx, isLogin, vals)
	var out Outcome
	switch {
	case err != nil:
		zap.S().Errorw("auth submission failed", "mode", mode, "err", err)
		c.fb.Notify(NotifyError)
		out = Outcome{
			Kind:    OutcomeUnexpectedError,
			Title:   c.msgs.GenericErrorTitle,
			Message: c.msgs.GenericError,
		}
		c.setState(Failed)
		c.alert.Alert(out.Title, out.Message)

	case res.Success:
		c.fb.Notify(NotifySuccess)
		out = Outcome{Kind: OutcomeSuccess, Email: res.Email}
		c.setState(Success)
		if isLogin {
			c.nav.Replace(RouteMainApp)
		} else {
			out.Title, out.Message = c.msgs.RegisterSuccessTitle, c.msgs.RegisterSuccess
			c.alert.Alert(out.Title, out.Message, Action{
				Label:   c.msgs.RegisterSuccessAction,
				OnPress: func() { c.nav.Replace(RouteMainApp) },
			})
		}

	default:
		c.fb.Notify(NotifyError)
		msg := res.Message
		if msg == "" {
			msg = c.msgs.FailureMessage(isLogin)
		}
		out = Outcome{
			Kind:    OutcomeServiceFailure,
			Title:   c.msgs.FailureTitle(isLogin),
			Message: msg,
		}
		c.setState(Failed)
		c.alert.Alert(out.Title, out.Message)
	}

	metrics.SubmissionsTotal.WithLabelValues(mode, string(out.Kind)).Inc()
	return out, nil
}

// call invokes the service for the mode and turns a panic into an error.
func (c *Controller) call(ctx context.Context, isLogin bool, v formstate.Values) (res credential.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("auth: credential service panic: %v", r)
		}
	}()
	if isLogin {
		return c.creds.Login(ctx, v.Email, v.Password)
	}
	return c.creds.Register(ctx, v.Email, v.Password)
}

// finish returns to Idle and releases the in-flight guard.
func (c *Controller) finish() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
	c.setState(Idle)
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	subs := make([]func(Transition), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(Transition{From: prev, To: next})
	}
}

/*──────────────────────────── mode toggle ──────────────────────────────────*/

// ToggleMode flips between login and register.  Passwords, errors, touched
// fields, and visibility toggles are reset; email is kept.  When the email
// field is empty but an earlier email is remembered, it is restored after
// the choreography delay.
func (c *Controller) ToggleMode() error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	email := c.store.Value(formstate.Email)
	remembered := c.previousEmail
	if email != "" {
		c.previousEmail = email
	}
	c.isLogin = !c.isLogin
	c.showPassword = false
	c.showConfirm = false
	c.mu.Unlock()

	c.fb.Impact(ImpactLight)
	c.store.ClearErrors()
	c.store.SetField(formstate.Password, "")
	c.store.SetField(formstate.ConfirmPassword, "")
	c.store.ResetTouched()

	if email == "" && remembered != "" {
		c.after(choreoRestore, func() {
			c.store.SetField(formstate.Email, remembered)
		})
	}
	return nil
}

// IsLogin reports the current mode.
func (c *Controller) IsLogin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isLogin
}

/*──────────────────────────── demo-fill ────────────────────────────────────*/

// UseDemo fills in the development account and clears errors.  Both fields
// are re-validated after the choreography delay, the same way a paste
// followed by a blur would be.
func (c *Controller) UseDemo() error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	demo := c.demo
	c.mu.Unlock()

	c.fb.Impact(ImpactLight)
	c.store.SetField(formstate.Email, demo.Email)
	c.store.SetField(formstate.Password, demo.Password)
	c.store.ClearErrors()

	c.after(choreoDemo, func() {
		c.store.SetFieldError(formstate.Email, validation.Email(demo.Email))
		c.store.SetFieldError(formstate.Password,
			validation.Password(demo.Password, c.store.MinPasswordLength()))
	})
	return nil
}

/*──────────────────────────── field input ──────────────────────────────────*/

// SetField records typed input and arms the field's debounced validator.
func (c *Controller) SetField(f formstate.Field, value string) {
	c.store.SetField(f, value)
	c.store.Dispatch(f)
}

// Touch marks f as interacted with, typically on blur.
func (c *Controller) Touch(f formstate.Field) {
	c.store.SetFieldTouched(f)
}

// ToggleVisibility flips the show/hide state of a password field.
func (c *Controller) ToggleVisibility(f formstate.Field) {
	c.mu.Lock()
	switch f {
	case formstate.Password:
		c.showPassword = !c.showPassword
	case formstate.ConfirmPassword:
		c.showConfirm = !c.showConfirm
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.fb.Impact(ImpactLight)
}

// Back returns to onboarding.
func (c *Controller) Back() {
	c.fb.Impact(ImpactLight)
	c.nav.Replace(RouteOnboarding)
}

/*──────────────────────────── read side ────────────────────────────────────*/

// State reports the current submission state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View is everything the screen renders.
type View struct {
	IsLogin          bool                     `json:"isLogin"`
	State            State                    `json:"state"`
	Form             formstate.Snapshot       `json:"form"`
	Valid            map[formstate.Field]bool `json:"valid"`
	Strength         validation.Score         `json:"strength"`
	Requirements     []validation.Requirement `json:"requirements,omitempty"`
	ShowPassword     bool                     `json:"showPassword"`
	ShowConfirm      bool                     `json:"showConfirmPassword"`
	Title            string                   `json:"title"`
	SubmitLabel      string                   `json:"submitLabel"`
	PasswordsMatch   bool                     `json:"passwordsMatch"`
	ConfirmAvailable bool                     `json:"confirmAvailable"`
}

// View computes the render state.  Strength and requirements are derived
// from the current password on every call.
func (c *Controller) View() View {
	c.mu.Lock()
	isLogin, state := c.isLogin, c.state
	showPass, showConfirm := c.showPassword, c.showConfirm
	c.mu.Unlock()

	snap := c.store.Snapshot()
	pass := snap.Values.Password
	valid := map[formstate.Field]bool{
		formstate.Email:    c.store.IsFieldValid(formstate.Email),
		formstate.Password: c.store.IsFieldValid(formstate.Password),
	}
	if !isLogin {
		valid[formstate.ConfirmPassword] = c.store.IsFieldValid(formstate.ConfirmPassword)
	}
	return View{
		IsLogin:          isLogin,
		State:            state,
		Form:             snap,
		Valid:            valid,
		Strength:         validation.Strength(pass),
		Requirements:     validation.Requirements(pass),
		ShowPassword:     showPass,
		ShowConfirm:      showConfirm,
		Title:            c.msgs.FormTitle(isLogin),
		SubmitLabel:      c.msgs.Submit(isLogin),
		PasswordsMatch:   pass != "" && pass == snap.Values.ConfirmPassword,
		ConfirmAvailable: !isLogin,
	}
}

// Subscribe registers fn for every state transition.  The returned func
// removes it.
func (c *Controller) Subscribe(fn func(Transition)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close stops pending choreography, closes the store, and rejects further
// actions.  Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	timers := c.timers
	c.timers = make(map[choreo]*pending)
	clear(c.subs)
	c.mu.Unlock()

	for _, p := range timers {
		p.t.Stop()
	}
	c.store.Close()
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func (c *Controller) guardLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.busy:
		return ErrSubmitting
	}
	return nil
}

// choreo names a kind of delayed choreography.  At most one timer per kind
// is pending at a time.
type choreo int

const (
	choreoRestore choreo = iota
	choreoDemo
)

type pending struct{ t clock.Timer }

// after runs fn once the choreography delay has passed, unless the
// controller is closed by then.  A pending timer of the same kind is
// stopped and replaced; a fired timer removes its own entry.
func (c *Controller) after(kind choreo, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if old, ok := c.timers[kind]; ok {
		old.t.Stop()
	}
	p := &pending{}
	p.t = c.clk.AfterFunc(c.delay, func() {
		c.mu.Lock()
		if c.timers[kind] != p {
			c.mu.Unlock()
			return
		}
		delete(c.timers, kind)
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			fn()
		}
	})
	c.timers[kind] = p
}

// pendingChoreography reports how many choreography timers are armed.
func (c *Controller) pendingChoreography() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func modeName(isLogin bool) string {
	if isLogin {
		return "login"
	}
	return "register"
}
