// internal/formstate/store.go
//
// Form State Store for the auth screen.
//
// Context
// -------
// The store owns the three field values (email, password, confirmPassword),
// the per-field error messages, and the set of touched fields.  It also owns
// one debounced validator per field.  The presentation layer subscribes and
// re-renders from Snapshot whenever the store changes.
//
// Workflow
// --------
//   - SetField only stores the value.  Callers decide when to validate by
//     calling Dispatch, so bulk operations such as demo-fill can pick their
//     own timing.
//   - Dispatch arms the field's debounced validator with the current values.
//     When it fires, its result is written back unconditionally, clearing the
//     error when the value now passes.
//   - ValidateAll replaces the error map wholesale with exactly the fields
//     that failed.
//   - Close stops every dispatcher.  Late timer callbacks, mutations, and
//     notifications after Close are no-ops.
//
// Notes
// -----
//   - Subscribers run after the store lock is released, on the goroutine
//     that caused the change (a timer goroutine for debounced results).
//   - Oxford commas, two spaces after periods.
package formstate

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yanizio/forma/internal/clock"
	"github.com/yanizio/forma/internal/debounce"
	"github.com/yanizio/forma/internal/metrics"
	"github.com/yanizio/forma/internal/validation"
)

// DefaultDebounceDelay is the quiet period before a field is re-validated.
const DefaultDebounceDelay = 300 * time.Millisecond

// ErrUnknownField is returned by ParseField for names outside the form.
var ErrUnknownField = errors.New("formstate: unknown field")

// Field names one input of the auth form.
type Field string

const (
	Email           Field = "email"
	Password        Field = "password"
	ConfirmPassword Field = "confirmPassword"
)

// Fields lists every field in display order.
var Fields = []Field{Email, Password, ConfirmPassword}

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", ErrUnknownField
}

// Values is the full set of field values.
type Values struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Snapshot is an immutable copy of the store state.
type Snapshot struct {
	Values  Values           `json:"values"`
	Errors  map[Field]string `json:"errors"`
	Touched []Field          `json:"touched"`
}

// Options tunes a Store.
type Options struct {
	MinPasswordLength int
	DebounceDelay     time.Duration
	Clock             clock.Clock
}

type confirmArgs struct{ confirm, original string }

// Store holds the auth form state.  It is safe for concurrent use.
type Store struct {
	minLen int

	mu      sync.Mutex
	values  map[Field]string
	errs    map[Field]*validation.Error
	touched map[Field]struct{}
	subs    map[int]func(Snapshot)
	nextSub int
	version uint64
	closed  bool

	// notifyMu serialises fan-out so subscribers see snapshots in mutation
	// order.  delivered is the newest version handed out; guarded by
	// notifyMu.
	notifyMu  sync.Mutex
	delivered uint64

	emailV   *debounce.Dispatcher[string]
	passV    *debounce.Dispatcher[string]
	confirmV *debounce.Dispatcher[confirmArgs]
}

// New returns an empty Store.  Zero Options fields take the defaults.
func New(o Options) *Store {
	if o.MinPasswordLength <= 0 {
		o.MinPasswordLength = validation.DefaultMinPasswordLength
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = DefaultDebounceDelay
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}

	s := &Store{
		minLen:  o.MinPasswordLength,
		values:  make(map[Field]string, len(Fields)),
		errs:    make(map[Field]*validation.Error),
		touched: make(map[Field]struct{}),
		subs:    make(map[int]func(Snapshot)),
	}
	withClock := debounce.WithClock(o.Clock)
	s.emailV = debounce.New(string(Email), o.DebounceDelay, func(v string) {
		s.applyDebounced(Email, validation.Email(v))
	}, withClock)
	s.passV = debounce.New(string(Password), o.DebounceDelay, func(v string) {
		s.applyDebounced(Password, validation.Password(v, s.minLen))
	}, withClock)
	s.confirmV = debounce.New(string(ConfirmPassword), o.DebounceDelay, func(a confirmArgs) {
		s.applyDebounced(ConfirmPassword, validation.Confirmation(a.confirm, a.original))
	}, withClock)
	return s
}

// MinPasswordLength reports the enforced password minimum.
func (s *Store) MinPasswordLength() int { return s.minLen }

/*──────────────────────────── mutations ────────────────────────────────────*/

// SetField stores value.  It does not validate.
func (s *Store) SetField(f Field, value string) {
	s.mutate(func() { s.values[f] = value })
}

// SetFieldError records err for f, or removes the entry when err is nil.
func (s *Store) SetFieldError(f Field, err *validation.Error) {
	s.mutate(func() {
		if err == nil {
			delete(s.errs, f)
			return
		}
		s.errs[f] = err
	})
}

// SetFieldTouched marks f as interacted with.  Idempotent.
func (s *Store) SetFieldTouched(f Field) {
	s.mutate(func() { s.touched[f] = struct{}{} })
}

// ResetTouched empties the touched set.
func (s *Store) ResetTouched() {
	s.mutate(func() { clear(s.touched) })
}

// ClearErrors removes every field error.
func (s *Store) ClearErrors() {
	s.mutate(func() { clear(s.errs) })
}

// ClearFieldError removes the error for f only.
func (s *Store) ClearFieldError(f Field) {
	s.mutate(func() { delete(s.errs, f) })
}

// ValidateAll checks email and password unconditionally.  The confirmation
// check runs only in register mode and only when confirmPassword is
// non-empty, so an empty confirmation passes here.  The error map is
// replaced with exactly the failures.  It reports true when nothing failed.
func (s *Store) ValidateAll(v Values, isLogin bool) bool {
	next := make(map[Field]*validation.Error)
	if err := validation.Email(v.Email); err != nil {
		next[Email] = err
	}
	if err := validation.Password(v.Password, s.minLen); err != nil {
		next[Password] = err
	}
	if !isLogin && v.ConfirmPassword != "" {
		if err := validation.Confirmation(v.ConfirmPassword, v.Password); err != nil {
			next[ConfirmPassword] = err
		}
	}

	s.mutate(func() { s.errs = next })
	return len(next) == 0
}

/*──────────────────────────── debounced validation ─────────────────────────*/

// Dispatch arms the debounced validator for f with the current values.  The
// confirmation validator captures the password as it is now.
func (s *Store) Dispatch(f Field) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	email, pass, confirm := s.values[Email], s.values[Password], s.values[ConfirmPassword]
	s.mu.Unlock()

	switch f {
	case Email:
		s.emailV.Schedule(email)
	case Password:
		s.passV.Schedule(pass)
	case ConfirmPassword:
		s.confirmV.Schedule(confirmArgs{confirm: confirm, original: pass})
	}
}

func (s *Store) applyDebounced(f Field, err *validation.Error) {
	result := "ok"
	if err != nil {
		result = err.Kind.String()
	}
	metrics.ValidationRunsTotal.WithLabelValues(string(f), result).Inc()
	s.SetFieldError(f, err)
}

// Validate runs f's validator against the current values without touching
// the error map.
func (s *Store) Validate(f Field) *validation.Error {
	v := s.Values()
	switch f {
	case Email:
		return validation.Email(v.Email)
	case Password:
		return validation.Password(v.Password, s.minLen)
	case ConfirmPassword:
		return validation.Confirmation(v.ConfirmPassword, v.Password)
	}
	return nil
}

// IsFieldValid reports whether f deserves a success marker: it is non-empty,
// has no stored error, and passes its validator right now.
func (s *Store) IsFieldValid(f Field) bool {
	s.mu.Lock()
	val := s.values[f]
	_, hasErr := s.errs[f]
	s.mu.Unlock()
	return val != "" && !hasErr && s.Validate(f) == nil
}

/*──────────────────────────── reads ────────────────────────────────────────*/

// Value returns the current value of f.
func (s *Store) Value(f Field) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[f]
}

// Values returns every field value.
func (s *Store) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valuesLocked()
}

// Error returns the stored error for f, or nil.
func (s *Store) Error(f Field) *validation.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[f]
}

// Touched reports whether f has been interacted with.
func (s *Store) Touched(f Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.touched[f]
	return ok
}

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

/*──────────────────────────── observers ────────────────────────────────────*/

// Subscribe registers fn to receive a Snapshot after every change.  The
// returned func removes the subscription.  Snapshots arrive one at a time
// in mutation order; one superseded by a newer delivery is skipped.  fn
// must not mutate the Store.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close stops the dispatchers and detaches every subscriber.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	clear(s.subs)
	s.mu.Unlock()

	s.emailV.Stop()
	s.passV.Stop()
	s.confirmV.Stop()
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// mutate applies fn under the lock and notifies subscribers afterwards.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	s.version++
	version := s.version
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Store) valuesLocked() Values {
	return Values{
		Email:           s.values[Email],
		Password:        s.values[Password],
		ConfirmPassword: s.values[ConfirmPassword],
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Values: s.valuesLocked(),
		Errors: make(map[Field]string, len(s.errs)),
	}
	for f, e := range s.errs {
		snap.Errors[f] = e.Message
	}
	for _, f := range Fields {
		if _, ok := s.touched[f]; ok {
			snap.Touched = append(snap.Touched, f)
		}
	}
	return snap
}
